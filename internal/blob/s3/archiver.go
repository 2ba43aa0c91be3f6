package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ladderplan/ladderd/internal/domain"
)

// TradeArchiveStore is the slice of the trade store the archiver needs: a
// time-ranged read and the matching delete. The Postgres trade store
// satisfies it.
type TradeArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// ArchiveImpl implements domain.Archiver: aged trade rows are serialized to
// JSONL, uploaded to object storage, and only then removed from the primary
// store. A failed upload leaves the rows in place for the next run.
type ArchiveImpl struct {
	writer domain.BlobWriter
	trades TradeArchiveStore
	audit  domain.AuditStore
}

func NewArchiver(writer domain.BlobWriter, trades TradeArchiveStore, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		trades: trades,
		audit:  audit,
	}
}

var _ domain.Archiver = (*ArchiveImpl)(nil)

// Payloads at or above this size go through the multipart uploader.
const multipartThreshold = 8 * 1024 * 1024

// archivedTrade is the JSONL record format. It is a stable wire shape,
// decoupled from the domain struct so renames there do not corrupt the
// archive.
type archivedTrade struct {
	ID        string    `json:"id"`
	PlannerID string    `json:"planner_id"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
	Fee       float64   `json:"fee"`
	TradeTime time.Time `json:"trade_time"`
	Source    string    `json:"source"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ArchiveTrades moves every trade older than the cutoff to object storage at
// archive/trades/YYYY-MM.jsonl and deletes the archived rows. It returns the
// number of rows removed from the primary store.
func (a *ArchiveImpl) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	trades, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}
	if len(trades) == 0 {
		return 0, nil
	}

	records := make([]archivedTrade, 0, len(trades))
	for _, t := range trades {
		records = append(records, archivedTrade{
			ID:        t.ID,
			PlannerID: t.PlannerID,
			Price:     t.Price,
			Quantity:  t.Quantity,
			Fee:       t.Fee,
			TradeTime: t.TradeTime,
			Source:    string(t.Source),
			Note:      t.Note,
			CreatedAt: t.CreatedAt,
		})
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
	}

	path := archivePath("trades", before)
	if len(buf) >= multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
	}

	deleted, err := a.trades.DeleteBefore(ctx, before)
	if err != nil {
		// The upload already succeeded; the rows are simply re-archived next
		// run, overwriting the object with the same content.
		return 0, fmt.Errorf("s3blob: archive trades delete: %w", err)
	}

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.trades", map[string]any{
			"path":    path,
			"count":   len(records),
			"deleted": deleted,
			"before":  before.Format(time.RFC3339),
		}); err != nil {
			return deleted, fmt.Errorf("s3blob: archive trades audit log: %w", err)
		}
	}
	return deleted, nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time.
//
//	archive/trades/2026-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serializes records as newline-delimited JSON, one compact
// object per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
