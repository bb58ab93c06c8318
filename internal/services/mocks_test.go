package services

import (
	"context"
	"sync"

	"github.com/Oliunekits/price-tracker-bot/internal/models"
	"github.com/Oliunekits/price-tracker-bot/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockCryptoProvider is a mock implementation of pricing.CryptoProvider
type MockCryptoProvider struct {
	mock.Mock
}

func (m *MockCryptoProvider) Name() string {
	return "mock-crypto"
}

func (m *MockCryptoProvider) Prices(ctx context.Context, assets []pricing.Asset, quote string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, assets, quote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

// MockRateProvider is a mock implementation of pricing.RateProvider
type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) Name() string {
	return "mock-fx"
}

func (m *MockRateProvider) Rates(ctx context.Context, base string, quotes []string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, base, quotes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, ownerID int64, text string) error {
	args := m.Called(ctx, ownerID, text)
	return args.Error(0)
}

// memoryStore is an in-memory TrackerStore that records write-backs
type memoryStore struct {
	mu       sync.Mutex
	trackers []models.Tracker
	batches  [][]models.ObservationUpdate
	listErr  error
	writeErr error
}

func (s *memoryStore) ListActive(_ context.Context) ([]models.Tracker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Tracker, 0, len(s.trackers))
	for _, t := range s.trackers {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memoryStore) BatchUpdate(_ context.Context, updates []models.ObservationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.batches = append(s.batches, updates)

	for _, u := range updates {
		for i := range s.trackers {
			if s.trackers[i].ID != u.ID {
				continue
			}
			checked := u.LastCheckedAt
			s.trackers[i].LastCheckedAt = &checked
			if u.LastPrice.Valid {
				s.trackers[i].LastPrice = u.LastPrice
			}
			if u.LastTriggeredAt != nil {
				s.trackers[i].LastTriggeredAt = u.LastTriggeredAt
			}
		}
	}
	return nil
}

func (s *memoryStore) get(id uint) models.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trackers {
		if t.ID == id {
			return t
		}
	}
	return models.Tracker{}
}

func (s *memoryStore) lastBatch() map[uint]models.ObservationUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint]models.ObservationUpdate)
	if len(s.batches) == 0 {
		return out
	}
	for _, u := range s.batches[len(s.batches)-1] {
		out[u.ID] = u
	}
	return out
}

func priceMap(kv ...string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = decimal.RequireFromString(kv[i+1])
	}
	return out
}
