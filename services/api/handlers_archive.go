package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sbomd/services/generations"
)

// handleGetArchiveLink returns a presigned URL for the archived copy of a
// manifest.
func (a *API) handleGetArchiveLink(w http.ResponseWriter, r *http.Request) {
	if a.store.S3 == nil || a.config.ArchiveBucket == "" {
		respondJSON(w, http.StatusFailedDependency, map[string]any{
			"error":   errors.New("manifest archive not configured").Error(),
			"errorId": "",
		})
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	sbom, err := a.store.Generations.GetSbom(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	link, err := a.store.S3.PresignGet(ctx, a.config.ArchiveBucket, generations.ArchiveKey(sbom.ID), presignURLExpiry)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":          sbom.ID,
		"downloadUrl": link,
	})
}
