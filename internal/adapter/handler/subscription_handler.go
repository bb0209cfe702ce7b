package handler

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"marketsync/internal/application/usecase"
)

type SubscriptionHandler struct {
	subs   *usecase.SubscriptionUseCase
	logger *zap.Logger
}

func NewSubscriptionHandler(subs *usecase.SubscriptionUseCase, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs, logger: logger}
}

type subscriptionResponse struct {
	Watch    []string `json:"watch"`
	Universe []string `json:"universe"`
	Feed     any      `json:"feed"`
}

// Get serves GET /subscription.
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, subscriptionResponse{
		Watch:    h.subs.Watch(),
		Universe: h.subs.Universe(),
		Feed:     h.subs.Status(),
	})
}

// Put serves PUT /subscription?symbols=A,B. The watch list is replaced; held
// symbols stay subscribed regardless.
func (h *SubscriptionHandler) Put(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	var symbols []string
	if raw != "" {
		symbols = strings.Split(raw, ",")
	}

	universe, err := h.subs.SetWatch(r.Context(), symbols)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, r.Context().Err()) {
			status = http.StatusRequestTimeout
		}
		h.logger.Error("resubscribe failed", zap.Error(err))
		writeError(w, status, "failed to resubscribe")
		return
	}

	h.logger.Info("subscription updated", zap.Strings("universe", universe))
	writeJSON(w, http.StatusOK, subscriptionResponse{
		Watch:    h.subs.Watch(),
		Universe: universe,
		Feed:     h.subs.Status(),
	})
}
