package services

import (
	"github.com/Oliunekits/price-tracker-bot/internal/models"
	"github.com/shopspring/decimal"
)

// Crossed reports whether moving from previous to current crosses target in
// the tracker's direction. An absent previous price fires on the first
// observation already past the target; otherwise the previous observation
// must lie strictly on the other side.
func Crossed(direction models.Direction, previous decimal.NullDecimal, current, target decimal.Decimal) bool {
	switch direction {
	case models.DirectionGTE:
		if !previous.Valid {
			return current.GreaterThanOrEqual(target)
		}
		return previous.Decimal.LessThan(target) && current.GreaterThanOrEqual(target)
	case models.DirectionLTE:
		if !previous.Valid {
			return current.LessThanOrEqual(target)
		}
		return previous.Decimal.GreaterThan(target) && current.LessThanOrEqual(target)
	default:
		return false
	}
}
