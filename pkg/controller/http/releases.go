package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/relwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/relwatch/pkg/domain/model"
)

// ReleasesHandler serves the releases held by the store
type ReleasesHandler struct {
	store interfaces.ReleaseStore
}

// NewReleasesHandler creates a new releases handler
func NewReleasesHandler(store interfaces.ReleaseStore) *ReleasesHandler {
	return &ReleasesHandler{store: store}
}

// List writes every stored release as a JSON array sorted by repository name
func (h *ReleasesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	releases, err := h.store.List(ctx)
	if err != nil {
		logger.Error("Failed to list releases", "error", err)
		writeError(w, goerr.Wrap(err, "failed to list releases"), http.StatusInternalServerError)
		return
	}
	if releases == nil {
		releases = []*model.Release{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(releases); err != nil {
		logger.Error("Failed to encode releases response", "error", err)
	}
}
