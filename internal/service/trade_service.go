package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ladderplan/ladderd/internal/domain"
)

// TradeService owns the trade history of each planner: manual entry,
// deletion and bulk CSV import/export. Trades are append-only facts; fill
// state is never touched here, it is recomputed from the history on read.
type TradeService struct {
	planners domain.PlannerStore
	trades   domain.TradeStore
	audit    domain.AuditStore
	bus      domain.SignalBus
	logger   *slog.Logger
}

func NewTradeService(planners domain.PlannerStore, trades domain.TradeStore, audit domain.AuditStore, bus domain.SignalBus, logger *slog.Logger) *TradeService {
	return &TradeService{
		planners: planners,
		trades:   trades,
		audit:    audit,
		bus:      bus,
		logger:   logger.With(slog.String("component", "trade_service")),
	}
}

// TradeInput is a single manually entered trade.
type TradeInput struct {
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Fee       float64   `json:"fee"`
	TradeTime time.Time `json:"trade_time"`
	Note      string    `json:"note"`
}

func (in TradeInput) validate() error {
	switch {
	case in.Price <= 0:
		return fmt.Errorf("trade_service: price must be positive: %w", domain.ErrInvalidTrade)
	case in.Quantity <= 0:
		return fmt.Errorf("trade_service: quantity must be positive: %w", domain.ErrInvalidTrade)
	case in.Fee < 0:
		return fmt.Errorf("trade_service: fee must be non-negative: %w", domain.ErrInvalidTrade)
	}
	return nil
}

// Add records one trade against the planner.
func (s *TradeService) Add(ctx context.Context, plannerID string, in TradeInput) (domain.Trade, error) {
	if err := in.validate(); err != nil {
		return domain.Trade{}, err
	}
	if _, err := s.planners.GetByID(ctx, plannerID); err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: load planner: %w", err)
	}

	now := time.Now().UTC()
	tradeTime := in.TradeTime
	if tradeTime.IsZero() {
		tradeTime = now
	}
	t := domain.Trade{
		ID:        uuid.NewString(),
		PlannerID: plannerID,
		Price:     in.Price,
		Quantity:  in.Quantity,
		Fee:       in.Fee,
		TradeTime: tradeTime.UTC(),
		Source:    domain.TradeManual,
		Note:      in.Note,
		CreatedAt: now,
	}
	if err := s.trades.Insert(ctx, t); err != nil {
		return domain.Trade{}, fmt.Errorf("trade_service: insert trade: %w", err)
	}

	s.auditLog(ctx, "trade.added", map[string]any{
		"planner_id": plannerID,
		"trade_id":   t.ID,
		"price":      t.Price,
		"quantity":   t.Quantity,
	})
	s.publishTradeEvent(ctx, plannerID)
	s.logger.Info("trade recorded",
		slog.String("planner_id", plannerID),
		slog.Float64("price", t.Price),
		slog.Float64("quantity", t.Quantity))
	return t, nil
}

// Delete removes one trade from the planner's history.
func (s *TradeService) Delete(ctx context.Context, plannerID, tradeID string) error {
	if err := s.trades.Delete(ctx, plannerID, tradeID); err != nil {
		return fmt.Errorf("trade_service: delete trade: %w", err)
	}
	s.auditLog(ctx, "trade.deleted", map[string]any{
		"planner_id": plannerID,
		"trade_id":   tradeID,
	})
	s.publishTradeEvent(ctx, plannerID)
	return nil
}

// List returns the planner's trades in trade_time ascending order.
func (s *TradeService) List(ctx context.Context, plannerID string, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.trades.ListByPlanner(ctx, plannerID, opts)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list trades: %w", err)
	}
	return trades, nil
}

// RowError describes one rejected CSV row.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportReport summarizes a CSV import: rows that made it in and rows that
// were rejected with the reason per line.
type ImportReport struct {
	Imported int        `json:"imported"`
	Rejected []RowError `json:"rejected,omitempty"`
}

// csvHeader is the required column order for trade imports and the header
// written on exports.
var csvHeader = []string{"price", "quantity", "fee", "trade_time"}

// ImportCSV bulk-loads trades from r. Malformed rows are skipped and
// reported; valid rows are inserted in one batch with duplicate rows
// silently deduplicated by the store.
func (s *TradeService) ImportCSV(ctx context.Context, plannerID string, r io.Reader) (ImportReport, error) {
	if _, err := s.planners.GetByID(ctx, plannerID); err != nil {
		return ImportReport{}, fmt.Errorf("trade_service: load planner: %w", err)
	}

	rows, rejected, err := parseTradeCSV(r)
	if err != nil {
		return ImportReport{}, fmt.Errorf("trade_service: parse csv: %w", err)
	}

	now := time.Now().UTC()
	trades := make([]domain.Trade, 0, len(rows))
	for _, row := range rows {
		trades = append(trades, domain.Trade{
			ID:        uuid.NewString(),
			PlannerID: plannerID,
			Price:     row.Price,
			Quantity:  row.Quantity,
			Fee:       row.Fee,
			TradeTime: row.TradeTime,
			Source:    domain.TradeCSVImport,
			CreatedAt: now,
		})
	}
	if len(trades) > 0 {
		if err := s.trades.InsertBatch(ctx, trades); err != nil {
			return ImportReport{}, fmt.Errorf("trade_service: insert batch: %w", err)
		}
	}

	s.auditLog(ctx, "trade.csv_imported", map[string]any{
		"planner_id": plannerID,
		"imported":   len(trades),
		"rejected":   len(rejected),
	})
	if len(trades) > 0 {
		s.publishTradeEvent(ctx, plannerID)
	}
	s.logger.Info("csv import finished",
		slog.String("planner_id", plannerID),
		slog.Int("imported", len(trades)),
		slog.Int("rejected", len(rejected)))
	return ImportReport{Imported: len(trades), Rejected: rejected}, nil
}

// ExportCSV writes the planner's trade history to w in the import format.
func (s *TradeService) ExportCSV(ctx context.Context, plannerID string, w io.Writer) error {
	trades, err := s.trades.ListByPlanner(ctx, plannerID, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("trade_service: list trades: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("trade_service: write header: %w", err)
	}
	for _, t := range trades {
		rec := []string{
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			strconv.FormatFloat(t.Quantity, 'f', -1, 64),
			strconv.FormatFloat(t.Fee, 'f', -1, 64),
			t.TradeTime.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("trade_service: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("trade_service: flush csv: %w", err)
	}
	return nil
}

// tradeRow is one parsed and validated CSV row.
type tradeRow struct {
	Price     float64
	Quantity  float64
	Fee       float64
	TradeTime time.Time
}

// parseTradeCSV reads the whole CSV, validating the header and each row.
// Row-level problems go into the rejected list; only an unreadable stream or
// a wrong header aborts the import.
func parseTradeCSV(r io.Reader) ([]tradeRow, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i, want := range csvHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != want {
			return nil, nil, fmt.Errorf("unexpected header %q, want %q", strings.Join(header, ","), strings.Join(csvHeader, ","))
		}
	}

	var (
		rows     []tradeRow
		rejected []RowError
		line     = 1
	)
	for {
		line++
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rejected = append(rejected, RowError{Line: line, Reason: err.Error()})
			continue
		}
		row, err := parseTradeRecord(rec)
		if err != nil {
			rejected = append(rejected, RowError{Line: line, Reason: err.Error()})
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejected, nil
}

func parseTradeRecord(rec []string) (tradeRow, error) {
	price, err := parsePositiveDecimal(rec[0])
	if err != nil {
		return tradeRow{}, fmt.Errorf("price: %w", err)
	}
	qty, err := parsePositiveDecimal(rec[1])
	if err != nil {
		return tradeRow{}, fmt.Errorf("quantity: %w", err)
	}
	fee := 0.0
	if strings.TrimSpace(rec[2]) != "" {
		d, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
		if err != nil || d.IsNegative() {
			return tradeRow{}, fmt.Errorf("fee: must be a non-negative number")
		}
		fee = d.InexactFloat64()
	}
	ts, err := parseTradeTime(rec[3])
	if err != nil {
		return tradeRow{}, fmt.Errorf("trade_time: %w", err)
	}
	return tradeRow{Price: price, Quantity: qty, Fee: fee, TradeTime: ts}, nil
}

func parsePositiveDecimal(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("must be positive")
	}
	return d.InexactFloat64(), nil
}

// parseTradeTime accepts RFC 3339 timestamps or unix epoch seconds.
func parseTradeTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("want RFC 3339 or unix seconds")
}

// publishTradeEvent nudges subscribers that the planner's history changed so
// views can recompute fills.
func (s *TradeService) publishTradeEvent(ctx context.Context, plannerID string) {
	if s.bus == nil {
		return
	}
	msg := fmt.Sprintf(`{"event":"trades_changed","planner_id":%q}`, plannerID)
	if err := s.bus.Publish(ctx, "planners", []byte(msg)); err != nil {
		s.logger.Warn("failed to publish trade event", slog.String("error", err.Error()))
	}
}

func (s *TradeService) auditLog(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.Warn("audit log failed", slog.String("event", event), slog.String("error", err.Error()))
	}
}
