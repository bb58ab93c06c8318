package services

import (
	"context"
	"time"

	"github.com/Oliunekits/price-tracker-bot/internal/metrics"
	"github.com/Oliunekits/price-tracker-bot/internal/models"
	"github.com/Oliunekits/price-tracker-bot/internal/tracing"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// WriteBackTimeout bounds the final batch write even when the pass deadline has passed
var WriteBackTimeout = 10 * time.Second

// PriceResolver resolves prices for a tracker snapshot
type PriceResolver interface {
	Resolve(ctx context.Context, trackers []models.Tracker) *Quotes
}

// AlertSender delivers the alert for one crossing
type AlertSender interface {
	Dispatch(ctx context.Context, t models.Tracker, price decimal.Decimal, at time.Time) error
}

// PassReport summarizes one monitoring pass
type PassReport struct {
	ID               string        `json:"id"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	Trackers         int           `json:"trackers"`
	Resolved         int           `json:"resolved"`
	Alerts           int           `json:"alerts"`
	DeliveryFailures int           `json:"delivery_failures"`
	FailedGroups     []string      `json:"failed_groups,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// CheckerOptions tunes pass behaviour
type CheckerOptions struct {
	// RedeliverOnFailure keeps the previous price when delivery fails
	RedeliverOnFailure bool
	Location           *time.Location
	Now                func() time.Time
}

// Checker runs monitoring passes
type Checker struct {
	store      TrackerStore
	resolver   PriceResolver
	dispatcher AlertSender
	redeliver  bool
	loc        *time.Location
	now        func() time.Time
	log        *zap.Logger
}

// NewChecker creates a new checker
func NewChecker(store TrackerStore, resolver PriceResolver, dispatcher AlertSender, opts CheckerOptions, log *zap.Logger) *Checker {
	c := &Checker{
		store:      store,
		resolver:   resolver,
		dispatcher: dispatcher,
		redeliver:  opts.RedeliverOnFailure,
		loc:        opts.Location,
		now:        opts.Now,
		log:        log,
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// RunPass lists active trackers, resolves prices, dispatches alerts for
// crossings and writes every observation back in one batch
func (c *Checker) RunPass(ctx context.Context) (PassReport, error) {
	start := time.Now()
	now := c.now().In(c.loc)
	report := PassReport{
		ID:        uuid.NewString(),
		StartedAt: now,
	}
	log := c.log.With(zap.String("pass_id", report.ID))

	ctx, span := tracing.Tracer().Start(ctx, "checker.pass", trace.WithAttributes(
		attribute.String("pass_id", report.ID),
	))
	defer span.End()

	err := c.runPass(ctx, now, &report, log)

	report.Duration = time.Since(start)
	metrics.PassDuration.Observe(report.Duration.Seconds())
	span.SetAttributes(
		attribute.Int("trackers", report.Trackers),
		attribute.Int("alerts", report.Alerts),
	)

	if err != nil {
		report.Error = err.Error()
		metrics.PassesTotal.WithLabelValues(metrics.ResultError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("pass failed", zap.Error(err), zap.Duration("duration", report.Duration))
		return report, err
	}

	metrics.PassesTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	log.Info("pass finished",
		zap.Time("started_at", report.StartedAt),
		zap.Int("trackers", report.Trackers),
		zap.Int("resolved", report.Resolved),
		zap.Int("alerts", report.Alerts),
		zap.Int("delivery_failures", report.DeliveryFailures),
		zap.Strings("failed_groups", report.FailedGroups),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (c *Checker) runPass(ctx context.Context, now time.Time, report *PassReport, log *zap.Logger) error {
	trackers, err := c.store.ListActive(ctx)
	if err != nil {
		return errors.Wrap(err, "list active trackers")
	}
	report.Trackers = len(trackers)
	if len(trackers) == 0 {
		return nil
	}

	quotes := c.resolver.Resolve(ctx, trackers)
	report.FailedGroups = quotes.FailedGroups
	c.log.Debug("prices resolved",
		zap.Int("prices", quotes.Len()),
		zap.Strings("failed_groups", quotes.FailedGroups),
	)

	updates := make([]models.ObservationUpdate, 0, len(trackers))
	for _, t := range trackers {
		update := models.ObservationUpdate{ID: t.ID, LastCheckedAt: now}

		price, ok := quotes.Lookup(t)
		if !ok {
			updates = append(updates, update)
			continue
		}
		report.Resolved++
		update.LastPrice = decimal.NewNullDecimal(price)

		if Crossed(t.Direction, t.LastPrice, price, t.Target) {
			if err := c.dispatcher.Dispatch(ctx, t, price, now); err != nil {
				report.DeliveryFailures++
				log.Warn("alert delivery failed",
					zap.Uint("tracker_id", t.ID),
					zap.Int64("owner_id", t.OwnerID),
					zap.Error(err),
				)
				if c.redeliver {
					update.LastPrice = decimal.NullDecimal{}
				}
			} else {
				report.Alerts++
				triggered := now
				update.LastTriggeredAt = &triggered
			}
		}

		updates = append(updates, update)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), WriteBackTimeout)
	defer cancel()

	if err := c.store.BatchUpdate(writeCtx, updates); err != nil {
		if errors.Is(err, ErrPersistence) {
			return err
		}
		return &PersistenceError{Err: err}
	}
	return nil
}
