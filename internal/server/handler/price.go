package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ladderplan/ladderd/internal/service"
)

// PriceHandler serves live consensus prices.
type PriceHandler struct {
	svc    *service.PriceService
	logger *slog.Logger
}

func NewPriceHandler(svc *service.PriceService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{svc: svc, logger: logHandler(logger, "price")}
}

// GetPrice returns the consensus price for an asset, quoted in ?currency=
// (default USD).
// GET /api/prices/{asset}
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	asset := strings.ToUpper(pathParam(r, "asset"))
	currency := strings.ToUpper(r.URL.Query().Get("currency"))
	if currency == "" {
		currency = "USD"
	}

	price, asOf, err := h.svc.GetPrice(r.Context(), asset, currency)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"asset":    asset,
		"currency": currency,
		"price":    price,
		"as_of":    asOf.UTC().Format(time.RFC3339),
	})
}
