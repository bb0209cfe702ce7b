package handler

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"marketsync/internal/application/usecase"
	"marketsync/internal/renderer"
)

type PortfolioHandler struct {
	portfolio *usecase.PortfolioUseCase
	location  *time.Location
	currency  string
	logger    *zap.Logger
}

func NewPortfolioHandler(portfolio *usecase.PortfolioUseCase, location *time.Location, currency string, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		portfolio: portfolio,
		location:  location,
		currency:  currency,
		logger:    logger,
	}
}

// Summary serves GET /portfolio.
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.portfolio.Summary())
}

// Holding serves GET /portfolio/holdings/{symbol}.
func (h *PortfolioHandler) Holding(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))
	hs, ok := h.portfolio.Holding(symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "symbol not held")
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

// Lots serves GET /portfolio/lots.
func (h *PortfolioHandler) Lots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.portfolio.Lots())
}

// Report serves GET /portfolio/report as HTML, or as markdown with
// ?format=md.
func (h *PortfolioHandler) Report(w http.ResponseWriter, r *http.Request) {
	md, err := renderer.SummaryMarkdown(h.portfolio.Summary(), renderer.Options{
		Account:  h.portfolio.Account(),
		Currency: h.currency,
		Location: h.location,
		Changed:  h.portfolio.Changed(),
	})
	if err != nil {
		h.logger.Error("failed to render report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(md))
		return
	}

	body, err := renderer.HTML(md)
	if err != nil {
		h.logger.Error("failed to convert report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<!doctype html>\n<html><body>\n" + body + "</body></html>\n"))
}
