package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Oliunekits/price-tracker-bot/internal/metrics"
	"github.com/Oliunekits/price-tracker-bot/internal/models"
	"github.com/Oliunekits/price-tracker-bot/internal/tracing"
	"github.com/Oliunekits/price-tracker-bot/pricing"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// batchResolver resolves every tracker of one kind with one provider call per group
type batchResolver interface {
	provider() string
	// key returns the group a tracker is batched into and its item within the group
	key(t models.Tracker) (group, item string)
	// resolve fetches all items of one group; missing items are absent from the result.
	// Items that need no provider call are returned even when the call fails.
	resolve(ctx context.Context, group string, trackers []models.Tracker) (map[string]decimal.Decimal, error)
}

type priceKey struct {
	kind  models.TrackerKind
	group string
	item  string
}

// Quotes holds the prices resolved during one pass
type Quotes struct {
	prices    map[priceKey]decimal.Decimal
	resolvers map[models.TrackerKind]batchResolver

	// FailedGroups lists "kind:group" for every group whose provider call failed
	FailedGroups []string
}

// Lookup returns the resolved price for a tracker
func (q *Quotes) Lookup(t models.Tracker) (decimal.Decimal, bool) {
	r, ok := q.resolvers[t.Kind]
	if !ok {
		return decimal.Zero, false
	}
	group, item := r.key(t)
	price, ok := q.prices[priceKey{kind: t.Kind, group: group, item: item}]
	return price, ok
}

// Len returns the number of resolved prices
func (q *Quotes) Len() int {
	return len(q.prices)
}

// RateAggregator batches price lookups for a tracker snapshot
type RateAggregator struct {
	resolvers   map[models.TrackerKind]batchResolver
	concurrency int
	log         *zap.Logger
}

// NewRateAggregator creates a new aggregator over a crypto and an fx source
func NewRateAggregator(crypto pricing.CryptoProvider, fx pricing.RateProvider, concurrency int, log *zap.Logger) *RateAggregator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RateAggregator{
		resolvers: map[models.TrackerKind]batchResolver{
			models.TrackerKindCrypto: &cryptoResolver{source: crypto},
			models.TrackerKindFX:     &fxResolver{source: fx},
		},
		concurrency: concurrency,
		log:         log,
	}
}

type groupJob struct {
	kind     models.TrackerKind
	group    string
	trackers []models.Tracker
}

// Resolve fetches prices for all trackers. A failing group only leaves its
// own entries absent; Resolve itself never fails.
func (a *RateAggregator) Resolve(ctx context.Context, trackers []models.Tracker) *Quotes {
	quotes := &Quotes{
		prices:    make(map[priceKey]decimal.Decimal),
		resolvers: a.resolvers,
	}

	jobs := a.plan(trackers)
	if len(jobs) == 0 {
		return quotes
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(a.concurrency)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			r := a.resolvers[job.kind]
			prices, err := a.resolveGroup(ctx, r, job)

			mu.Lock()
			defer mu.Unlock()
			for item, price := range prices {
				quotes.prices[priceKey{kind: job.kind, group: job.group, item: item}] = price
			}
			if err != nil {
				quotes.FailedGroups = append(quotes.FailedGroups, string(job.kind)+":"+job.group)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(quotes.FailedGroups)
	return quotes
}

// Price resolves a single tracker and reports provider failures to the caller
func (a *RateAggregator) Price(ctx context.Context, t models.Tracker) (decimal.Decimal, error) {
	r, ok := a.resolvers[t.Kind]
	if !ok {
		return decimal.Zero, errors.Wrapf(models.ErrInvalidKind, "%q", t.Kind)
	}
	group, item := r.key(t)

	prices, err := r.resolve(ctx, group, []models.Tracker{t})
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := prices[item]
	if !ok {
		return decimal.Zero, errors.Wrapf(pricing.ErrDataMissing, "%s %s", t.Kind, t.Pair())
	}
	return price, nil
}

func (a *RateAggregator) plan(trackers []models.Tracker) []groupJob {
	byGroup := make(map[priceKey][]models.Tracker)
	for _, t := range trackers {
		r, ok := a.resolvers[t.Kind]
		if !ok {
			continue
		}
		group, _ := r.key(t)
		k := priceKey{kind: t.Kind, group: group}
		byGroup[k] = append(byGroup[k], t)
	}

	jobs := make([]groupJob, 0, len(byGroup))
	for k, ts := range byGroup {
		jobs = append(jobs, groupJob{kind: k.kind, group: k.group, trackers: ts})
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].kind != jobs[j].kind {
			return jobs[i].kind < jobs[j].kind
		}
		return jobs[i].group < jobs[j].group
	})
	return jobs
}

func (a *RateAggregator) resolveGroup(ctx context.Context, r batchResolver, job groupJob) (map[string]decimal.Decimal, error) {
	ctx, span := tracing.Tracer().Start(ctx, "rates.group", trace.WithAttributes(
		attribute.String("kind", string(job.kind)),
		attribute.String("group", job.group),
		attribute.String("provider", r.provider()),
		attribute.Int("trackers", len(job.trackers)),
	))
	defer span.End()

	prices, err := r.resolve(ctx, job.group, job.trackers)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.log.Warn("price group failed",
			zap.String("kind", string(job.kind)),
			zap.String("group", job.group),
			zap.String("provider", r.provider()),
			zap.Bool("unavailable", pricing.IsUnavailable(err)),
			zap.Error(err),
		)
		return prices, err
	}

	a.log.Debug("price group resolved",
		zap.String("kind", string(job.kind)),
		zap.String("group", job.group),
		zap.Int("prices", len(prices)),
	)
	return prices, nil
}

func recordRequest(provider string, err error) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ProviderRequests.WithLabelValues(provider, result).Inc()
}

// cryptoResolver groups crypto trackers by lowercased quote
type cryptoResolver struct {
	source pricing.CryptoProvider
}

func (r *cryptoResolver) provider() string {
	return r.source.Name()
}

func (r *cryptoResolver) key(t models.Tracker) (string, string) {
	return strings.ToLower(strings.TrimSpace(t.Quote)), strings.ToLower(strings.TrimSpace(t.AssetID()))
}

func (r *cryptoResolver) resolve(ctx context.Context, quote string, trackers []models.Tracker) (map[string]decimal.Decimal, error) {
	assets := lo.UniqBy(lo.FilterMap(trackers, func(t models.Tracker, _ int) (pricing.Asset, bool) {
		_, id := r.key(t)
		return pricing.Asset{ID: id, Symbol: strings.ToUpper(t.Base)}, id != ""
	}), func(a pricing.Asset) string {
		return a.ID
	})
	if len(assets) == 0 {
		return map[string]decimal.Decimal{}, nil
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })

	prices, err := r.source.Prices(ctx, assets, quote)
	recordRequest(r.provider(), err)
	if err != nil {
		return nil, errors.Wrapf(err, "crypto prices in %s", quote)
	}

	out := make(map[string]decimal.Decimal, len(prices))
	for id, price := range prices {
		out[strings.ToLower(id)] = price
	}
	return out, nil
}

// fxResolver groups currency pairs by uppercased base
type fxResolver struct {
	source pricing.RateProvider
}

func (r *fxResolver) provider() string {
	return r.source.Name()
}

func (r *fxResolver) key(t models.Tracker) (string, string) {
	return pricing.NormalizeCode(t.Base), pricing.NormalizeCode(t.Quote)
}

func (r *fxResolver) resolve(ctx context.Context, base string, trackers []models.Tracker) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)

	var quotes []string
	for _, t := range trackers {
		_, quote := r.key(t)
		if quote == base {
			out[quote] = decimal.NewFromInt(1)
			continue
		}
		quotes = append(quotes, quote)
	}
	quotes = pricing.NormalizeCodes(quotes)
	if len(quotes) == 0 {
		return out, nil
	}

	rates, err := r.source.Rates(ctx, base, quotes)
	recordRequest(r.provider(), err)
	if err != nil {
		return out, errors.Wrapf(err, "fx rates from %s", base)
	}

	for quote, rate := range rates {
		out[pricing.NormalizeCode(quote)] = rate
	}
	return out, nil
}
