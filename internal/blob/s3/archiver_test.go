package s3blob

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ladderplan/ladderd/internal/domain"
)

type recordingWriter struct {
	puts       map[string][]byte
	multiparts map[string][]byte
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{
		puts:       map[string][]byte{},
		multiparts: map[string][]byte{},
	}
}

func (w *recordingWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.puts[path] = buf
	return nil
}

func (w *recordingWriter) PutMultipart(_ context.Context, path string, data io.Reader, _ int64) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.multiparts[path] = buf
	return nil
}

type memArchiveTrades struct {
	rows    []domain.Trade
	deleted int64
}

func (m *memArchiveTrades) ListBefore(_ context.Context, before time.Time) ([]domain.Trade, error) {
	var out []domain.Trade
	for _, t := range m.rows {
		if t.TradeTime.Before(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memArchiveTrades) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	var kept []domain.Trade
	for _, t := range m.rows {
		if t.TradeTime.Before(before) {
			m.deleted++
			continue
		}
		kept = append(kept, t)
	}
	m.rows = kept
	return m.deleted, nil
}

type memAudit struct {
	entries []string
}

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.entries = append(m.entries, event)
	return nil
}

func (m *memAudit) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func archivedTradeRow(id string, tradeTime time.Time, note string) domain.Trade {
	return domain.Trade{
		ID:        id,
		PlannerID: "p1",
		Price:     50,
		Quantity:  1,
		TradeTime: tradeTime,
		Source:    domain.TradeManual,
		Note:      note,
	}
}

func TestArchiveTradesUploadsThenDeletes(t *testing.T) {
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	writer := newRecordingWriter()
	store := &memArchiveTrades{rows: []domain.Trade{
		archivedTradeRow("old-1", cutoff.Add(-48*time.Hour), ""),
		archivedTradeRow("old-2", cutoff.Add(-24*time.Hour), ""),
		archivedTradeRow("new-1", cutoff.Add(24*time.Hour), ""),
	}}
	audit := &memAudit{}

	deleted, err := NewArchiver(writer, store, audit).ArchiveTrades(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	require.Len(t, store.rows, 1)
	assert.Equal(t, "new-1", store.rows[0].ID)

	body, ok := writer.puts["archive/trades/2026-03.jsonl"]
	require.True(t, ok)
	assert.Equal(t, 2, strings.Count(string(body), "\n"))
	assert.Contains(t, string(body), `"old-1"`)
	assert.Contains(t, audit.entries, "archive.trades")
}

func TestArchiveTradesSkipsUploadWhenEmpty(t *testing.T) {
	writer := newRecordingWriter()
	store := &memArchiveTrades{}

	deleted, err := NewArchiver(writer, store, nil).ArchiveTrades(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Empty(t, writer.puts)
	assert.Empty(t, writer.multiparts)
}

func TestArchiveTradesUsesMultipartForLargePayloads(t *testing.T) {
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	writer := newRecordingWriter()

	// Inflate each record well past a kilobyte so the serialized batch
	// crosses the multipart threshold.
	note := strings.Repeat("x", 4096)
	store := &memArchiveTrades{}
	for i := 0; i < 2100; i++ {
		store.rows = append(store.rows,
			archivedTradeRow("t", cutoff.Add(-time.Hour), note))
	}

	_, err := NewArchiver(writer, store, nil).ArchiveTrades(context.Background(), cutoff)
	require.NoError(t, err)

	assert.Empty(t, writer.puts)
	body, ok := writer.multiparts["archive/trades/2026-03.jsonl"]
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(body), multipartThreshold)
}
