package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ladderplan/ladderd/internal/service"
)

// maxImportBody caps CSV uploads at 10 MiB.
const maxImportBody = 10 << 20

// TradeHandler serves trade entry, deletion and CSV import/export.
type TradeHandler struct {
	svc    *service.TradeService
	logger *slog.Logger
}

func NewTradeHandler(svc *service.TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{svc: svc, logger: logHandler(logger, "trade")}
}

// AddTrade records one trade against the planner.
// POST /api/planners/{id}/trades
func (h *TradeHandler) AddTrade(w http.ResponseWriter, r *http.Request) {
	var in service.TradeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.Add(r.Context(), pathParam(r, "id"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTrades returns the planner's trades in trade_time order.
// GET /api/planners/{id}/trades
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.svc.List(r.Context(), pathParam(r, "id"), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// DeleteTrade removes one trade from the history.
// DELETE /api/planners/{id}/trades/{tradeID}
func (h *TradeHandler) DeleteTrade(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), pathParam(r, "id"), pathParam(r, "tradeID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportTrades bulk-loads trades from a CSV request body. The response
// reports how many rows were imported and which lines were rejected.
// POST /api/planners/{id}/trades/import
func (h *TradeHandler) ImportTrades(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBody)
	report, err := h.svc.ImportCSV(r.Context(), pathParam(r, "id"), body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ExportTrades streams the planner's trade history as a CSV download.
// GET /api/planners/{id}/trades/export
func (h *TradeHandler) ExportTrades(w http.ResponseWriter, r *http.Request) {
	plannerID := pathParam(r, "id")
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="trades-%s-%s.csv"`, plannerID, time.Now().UTC().Format("2006-01-02")))
	if err := h.svc.ExportCSV(r.Context(), plannerID, w); err != nil {
		// Headers are already out; all we can do is log.
		h.logger.ErrorContext(r.Context(), "csv export failed",
			slog.String("planner_id", plannerID),
			slog.String("error", err.Error()))
	}
}
