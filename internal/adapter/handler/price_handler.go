package handler

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"marketsync/internal/application/usecase"
)

type PriceHandler struct {
	portfolio *usecase.PortfolioUseCase
	logger    *zap.Logger
}

func NewPriceHandler(portfolio *usecase.PortfolioUseCase, logger *zap.Logger) *PriceHandler {
	return &PriceHandler{
		portfolio: portfolio,
		logger:    logger,
	}
}

// ListPrices serves GET /prices.
func (h *PriceHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.portfolio.Quotes())
}

// GetPrice serves GET /prices/{symbol}.
func (h *PriceHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	q, ok := h.portfolio.Quote(symbol)
	if !ok {
		h.logger.Debug("no quote for symbol", zap.String("symbol", symbol))
		writeError(w, http.StatusNotFound, "no data found")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Changed serves GET /changed: symbols whose price moved recently.
func (h *PriceHandler) Changed(w http.ResponseWriter, r *http.Request) {
	changed := h.portfolio.Changed()
	if changed == nil {
		changed = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"symbols": changed})
}
