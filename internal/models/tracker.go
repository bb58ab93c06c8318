package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TrackerKind represents the class of instrument a tracker watches
type TrackerKind string

const (
	TrackerKindCrypto TrackerKind = "crypto"
	TrackerKindFX     TrackerKind = "fx"
)

// Direction represents the side of the target that satisfies a tracker
type Direction string

const (
	DirectionGTE Direction = "gte" // at least
	DirectionLTE Direction = "lte" // at most
)

// Arrow returns the comparison sign used in messages
func (d Direction) Arrow() string {
	if d == DirectionGTE {
		return "≥"
	}
	return "≤"
}

// Validation errors
var (
	ErrInvalidKind      = errors.New("invalid tracker kind")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidTarget    = errors.New("target must be positive")
	ErrInvalidCurrency  = errors.New("currency code must be 3 letters")
	ErrMissingCoinID    = errors.New("crypto tracker requires a coin id")
	ErrUnexpectedCoinID = errors.New("fx tracker must not carry a coin id")
	ErrMissingOwner     = errors.New("owner id is required")
)

// Tracker represents a persisted threshold watch on one crypto asset or currency pair
type Tracker struct {
	ID      uint        `json:"id" gorm:"primaryKey"`
	OwnerID int64       `json:"owner_id" gorm:"index;index:ix_trackers_owner_active,priority:1;not null"`
	Kind    TrackerKind `json:"kind" gorm:"type:varchar(8);index;not null"`

	// CoinID is the crypto provider asset id, e.g. "bitcoin"
	CoinID *string `json:"coin_id,omitempty" gorm:"type:varchar(64)"`
	Base   string  `json:"base" gorm:"type:varchar(16);not null"`
	Quote  string  `json:"quote" gorm:"type:varchar(16);not null"`

	Direction Direction       `json:"direction" gorm:"type:varchar(8);not null"`
	Target    decimal.Decimal `json:"target" gorm:"type:numeric(20,8);not null"`

	IsActive bool `json:"is_active" gorm:"index:ix_trackers_owner_active,priority:2;default:true"`

	LastPrice       decimal.NullDecimal `json:"last_price" gorm:"type:numeric(20,8)"`
	LastCheckedAt   *time.Time          `json:"last_checked_at"`
	LastTriggeredAt *time.Time          `json:"last_triggered_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ObservationUpdate is the per-pass state written back for one tracker.
// An invalid LastPrice or a nil LastTriggeredAt leaves the stored column as is.
type ObservationUpdate struct {
	ID              uint
	LastPrice       decimal.NullDecimal
	LastCheckedAt   time.Time
	LastTriggeredAt *time.Time
}

// Pair returns the display form of the tracked pair, e.g. BTC/USD
func (t *Tracker) Pair() string {
	return fmt.Sprintf("%s/%s", strings.ToUpper(t.Base), strings.ToUpper(t.Quote))
}

// AssetID returns the coin id or an empty string
func (t *Tracker) AssetID() string {
	if t.CoinID == nil {
		return ""
	}
	return *t.CoinID
}

// Normalize brings codes to their stored form
func (t *Tracker) Normalize() {
	t.Base = strings.ToUpper(strings.TrimSpace(t.Base))
	t.Quote = strings.ToUpper(strings.TrimSpace(t.Quote))
	if t.CoinID != nil {
		id := strings.ToLower(strings.TrimSpace(*t.CoinID))
		t.CoinID = &id
	}
}

// Validate checks the tracker invariants
func (t *Tracker) Validate() error {
	if t.OwnerID == 0 {
		return ErrMissingOwner
	}
	if t.Direction != DirectionGTE && t.Direction != DirectionLTE {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, t.Direction)
	}
	if !t.Target.IsPositive() {
		return ErrInvalidTarget
	}
	if !IsCurrencyCode(t.Quote) {
		return fmt.Errorf("%w: quote %q", ErrInvalidCurrency, t.Quote)
	}

	switch t.Kind {
	case TrackerKindCrypto:
		if t.AssetID() == "" {
			return ErrMissingCoinID
		}
		if t.Base == "" {
			return fmt.Errorf("%w: empty base symbol", ErrInvalidCurrency)
		}
	case TrackerKindFX:
		if t.CoinID != nil {
			return ErrUnexpectedCoinID
		}
		if !IsCurrencyCode(t.Base) {
			return fmt.Errorf("%w: base %q", ErrInvalidCurrency, t.Base)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}

	return nil
}

// IsCurrencyCode reports whether s is exactly three ASCII letters
func IsCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}

// NormalizeCurrency uppercases a currency code and checks its shape
func NormalizeCurrency(s string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(s))
	if !IsCurrencyCode(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return code, nil
}
