package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/Oliunekits/price-tracker-bot/internal/metrics"
	"github.com/Oliunekits/price-tracker-bot/internal/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Dispatcher renders alerts and hands them to a Notifier
type Dispatcher struct {
	notifier Notifier
	loc      *time.Location
	log      *zap.Logger
}

// NewDispatcher creates a new dispatcher; times are rendered in loc
func NewDispatcher(notifier Notifier, loc *time.Location, log *zap.Logger) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{
		notifier: notifier,
		loc:      loc,
		log:      log,
	}
}

// Dispatch sends the alert for one crossing to the tracker owner
func (d *Dispatcher) Dispatch(ctx context.Context, t models.Tracker, price decimal.Decimal, at time.Time) error {
	text := FormatAlert(t, price, at.In(d.loc))

	if err := d.notifier.Send(ctx, t.OwnerID, text); err != nil {
		metrics.AlertsTotal.WithLabelValues(metrics.ResultError).Inc()
		return errors.Wrapf(err, "tracker %d", t.ID)
	}

	metrics.AlertsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	d.log.Info("alert sent",
		zap.Uint("tracker_id", t.ID),
		zap.Int64("owner_id", t.OwnerID),
		zap.String("pair", t.Pair()),
		zap.String("price", price.String()),
	)
	return nil
}

// FormatAlert renders the HTML notification for a crossing
func FormatAlert(t models.Tracker, price decimal.Decimal, at time.Time) string {
	pair := html.EscapeString(t.Pair())

	var sb strings.Builder
	sb.WriteString("🔔 <b>Price alert!</b>\n\n")
	sb.WriteString(pair + "\n")
	sb.WriteString(fmt.Sprintf("Current price: <b>%s</b>\n", price.StringFixed(8)))
	sb.WriteString(fmt.Sprintf("Condition: <b>%s %s %s</b>\n", pair, t.Direction.Arrow(), t.Target.String()))
	sb.WriteString(fmt.Sprintf("Time: %s", at.Format("2006-01-02 15:04:05 MST")))
	return sb.String()
}
