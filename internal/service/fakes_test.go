package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ladderplan/ladderd/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memPlannerStore struct {
	mu       sync.Mutex
	planners map[string]domain.Planner
}

func newMemPlannerStore() *memPlannerStore {
	return &memPlannerStore{planners: map[string]domain.Planner{}}
}

func (m *memPlannerStore) Create(_ context.Context, p domain.Planner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.planners[p.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.planners[p.ID] = p
	return nil
}

func (m *memPlannerStore) Update(_ context.Context, p domain.Planner) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.planners[p.ID]; !ok {
		return domain.ErrNotFound
	}
	m.planners[p.ID] = p
	return nil
}

func (m *memPlannerStore) UpdateStatus(_ context.Context, id string, status domain.PlannerStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.planners[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Status = status
	m.planners[id] = p
	return nil
}

func (m *memPlannerStore) GetByID(_ context.Context, id string) (domain.Planner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.planners[id]
	if !ok {
		return domain.Planner{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memPlannerStore) ListByOwner(_ context.Context, owner string, _ domain.ListOpts) ([]domain.Planner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Planner
	for _, p := range m.planners {
		if owner == "" || p.Owner == owner {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPlannerStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.planners[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.planners, id)
	return nil
}

func (m *memPlannerStore) ListActive(_ context.Context) ([]domain.Planner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Planner
	for _, p := range m.planners {
		if p.Status == domain.PlannerActive {
			out = append(out, p)
		}
	}
	return out, nil
}

type memLevelStore struct {
	mu     sync.Mutex
	levels map[string][]domain.Level
}

func newMemLevelStore() *memLevelStore {
	return &memLevelStore{levels: map[string][]domain.Level{}}
}

func (m *memLevelStore) ReplaceForPlanner(_ context.Context, plannerID string, levels []domain.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[plannerID] = append([]domain.Level(nil), levels...)
	return nil
}

func (m *memLevelStore) ListByPlanner(_ context.Context, plannerID string) ([]domain.Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Level(nil), m.levels[plannerID]...), nil
}

type memTradeStore struct {
	mu     sync.Mutex
	trades map[string][]domain.Trade
}

func newMemTradeStore() *memTradeStore {
	return &memTradeStore{trades: map[string][]domain.Trade{}}
}

func (m *memTradeStore) Insert(_ context.Context, t domain.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[t.PlannerID] = append(m.trades[t.PlannerID], t)
	return nil
}

func (m *memTradeStore) InsertBatch(ctx context.Context, trades []domain.Trade) error {
	for _, t := range trades {
		if err := m.Insert(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *memTradeStore) ListByPlanner(_ context.Context, plannerID string, _ domain.ListOpts) ([]domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.Trade(nil), m.trades[plannerID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].TradeTime.Before(out[j].TradeTime) })
	return out, nil
}

func (m *memTradeStore) Delete(_ context.Context, plannerID, tradeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.trades[plannerID]
	for i, t := range rows {
		if t.ID == tradeID {
			m.trades[plannerID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memTradeStore) ListBefore(_ context.Context, before time.Time) ([]domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Trade
	for _, rows := range m.trades {
		for _, t := range rows {
			if t.TradeTime.Before(before) {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (m *memTradeStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, rows := range m.trades {
		kept := rows[:0]
		for _, t := range rows {
			if t.TradeTime.Before(before) {
				n++
				continue
			}
			kept = append(kept, t)
		}
		m.trades[id] = kept
	}
	return n, nil
}

type auditRecord struct {
	Event  string
	Detail map[string]any
}

type memAuditStore struct {
	mu      sync.Mutex
	entries []auditRecord
}

func (m *memAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditRecord{Event: event, Detail: detail})
	return nil
}

func (m *memAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (m *memAuditStore) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Event)
	}
	return out
}

type busMessage struct {
	Channel string
	Payload []byte
}

type memBus struct {
	mu       sync.Mutex
	messages []busMessage
}

func (m *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, busMessage{Channel: channel, Payload: payload})
	return nil
}

func (m *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (m *memBus) onChannel(channel string) []busMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []busMessage
	for _, msg := range m.messages {
		if msg.Channel == channel {
			out = append(out, msg)
		}
	}
	return out
}

// memLocks grants each key once until its TTL is simulated away by test code
// clearing the map.
type memLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocks() *memLocks {
	return &memLocks{held: map[string]bool{}}
}

func (m *memLocks) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return nil, domain.ErrLockHeld
	}
	m.held[key] = true
	return func() {}, nil
}

type stubPrices struct {
	price float64
	asOf  time.Time
	err   error
}

func (s *stubPrices) GetPrice(context.Context, string, string) (float64, time.Time, error) {
	if s.err != nil {
		return 0, time.Time{}, s.err
	}
	return s.price, s.asOf, nil
}
