package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"marketsync/internal/application/service"
	"marketsync/internal/domain/model"
)

type ModeHandler struct {
	modeService *service.ModeService
	log         *zap.Logger
}

func NewModeHandler(ms *service.ModeService, log *zap.Logger) *ModeHandler {
	return &ModeHandler{
		modeService: ms,
		log:         log,
	}
}

type modeResponse struct {
	Status    string   `json:"status"`
	Mode      string   `json:"mode"`
	Available []string `json:"available,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// Get serves GET /mode.
func (h *ModeHandler) Get(w http.ResponseWriter, r *http.Request) {
	available := h.modeService.Available()
	names := make([]string, len(available))
	for i, m := range available {
		names[i] = m.String()
	}
	writeJSON(w, http.StatusOK, modeResponse{
		Status:    "ok",
		Mode:      h.modeService.GetCurrentMode().String(),
		Available: names,
	})
}

// Switch serves POST /mode/{mode}. "stream" is an alias for the configured
// streaming source.
func (h *ModeHandler) Switch(w http.ResponseWriter, r *http.Request) {
	mode, err := h.resolve(r.PathValue("mode"))
	if err != nil {
		h.log.Warn("unknown mode requested", zap.String("mode", r.PathValue("mode")))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	current := h.modeService.GetCurrentMode()
	if current == mode {
		h.log.Info("already in requested mode", zap.Stringer("mode", mode))
		writeJSON(w, http.StatusOK, modeResponse{Status: "ok", Mode: mode.String(), Message: "already in requested mode"})
		return
	}

	h.log.Info("switching mode", zap.Stringer("from", current), zap.Stringer("to", mode))
	if err := h.modeService.SwitchMode(r.Context(), mode); err != nil {
		h.log.Error("switch mode failed", zap.Stringer("from", current), zap.Stringer("to", mode), zap.Error(err))
		if errors.Is(err, model.ErrUnknownSource) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to switch mode")
		return
	}

	h.log.Info("mode switched successfully", zap.Stringer("new_mode", mode))
	writeJSON(w, http.StatusOK, modeResponse{Status: "ok", Mode: mode.String()})
}

func (h *ModeHandler) resolve(name string) (model.FeedMode, error) {
	if name != "stream" {
		return model.ParseFeedMode(name)
	}
	for _, m := range h.modeService.Available() {
		if m.IsStreaming() {
			return m, nil
		}
	}
	return 0, model.ErrUnknownSource
}
