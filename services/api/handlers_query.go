package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"sbomd/pkg/paging"
)

func (a *API) handleListRequests(w http.ResponseWriter, r *http.Request) {
	params, err := paging.ParseParams(r)
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	page, err := a.store.Generations.SearchRequests(ctx, params, r.URL.Query().Get("query"), r.URL.Query().Get("sort"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (a *API) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	req, err := a.store.Generations.GetRequest(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (a *API) handleListSboms(w http.ResponseWriter, r *http.Request) {
	params, err := paging.ParseParams(r)
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	page, err := a.store.Generations.SearchSboms(ctx, params, r.URL.Query().Get("query"), r.URL.Query().Get("sort"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (a *API) handleGetSbom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	sbom, err := a.store.Generations.GetSbom(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sbom)
}

func (a *API) handleGetBom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	sbom, err := a.store.Generations.GetSbom(ctx, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(sbom.Bom)
}

// handleGetSbomByPurl serves /sboms/purl/<purl> and /sboms/purl/<purl>/bom.
// The purl is matched as a wildcard because encoded purls contain slashes.
func (a *API) handleGetSbomByPurl(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")

	wantBom := false
	if strings.HasSuffix(raw, "/bom") {
		wantBom = true
		raw = strings.TrimSuffix(raw, "/bom")
	}

	purl, err := url.PathUnescape(raw)
	if err != nil {
		respondError(w, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	sbom, err := a.store.Generations.GetSbomByPurl(ctx, purl)
	if err != nil {
		respondError(w, err)
		return
	}

	if wantBom {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(sbom.Bom)
		return
	}
	respondJSON(w, http.StatusOK, sbom)
}
