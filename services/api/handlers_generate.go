package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sbomd/pkg/genconfig"
)

var errDryRun = errors.New("service is running in dry-run mode, generation intake is disabled")

func (a *API) rejectDryRun(w http.ResponseWriter) bool {
	if !a.config.DryRun {
		return false
	}
	requestsRejectedDryRun.Inc()
	respondJSON(w, http.StatusServiceUnavailable, map[string]any{
		"error":   errDryRun.Error(),
		"errorId": "",
	})
	return true
}

func (a *API) accept(w http.ResponseWriter, r *http.Request, cfg genconfig.Config, identifier string) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	req, err := a.store.Generations.CreateRequest(ctx, cfg, identifier, nil)
	if err != nil {
		respondError(w, err)
		return
	}

	requestsAccepted.WithLabelValues(string(req.Type)).Inc()
	respondJSON(w, http.StatusAccepted, req)
}

func (a *API) handleGenerateBuild(w http.ResponseWriter, r *http.Request) {
	if a.rejectDryRun(w) {
		return
	}

	buildID := chi.URLParam(r, "buildId")
	cfg, err := decodeConfig(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if cfg == nil {
		cfg = genconfig.New(genconfig.TypePncBuild)
	}

	build, ok := cfg.(*genconfig.PncBuildConfig)
	if !ok {
		respondError(w, &genconfig.ValidationError{Reason: fmt.Sprintf("config type %q does not match a build request", cfg.ConfigType())})
		return
	}
	if build.BuildID == "" {
		build.BuildID = buildID
	}
	if build.BuildID != buildID {
		respondError(w, &genconfig.ValidationError{Reason: fmt.Sprintf("config build id %q does not match path build id %q", build.BuildID, buildID)})
		return
	}

	a.accept(w, r, build, buildID)
}

func (a *API) handleGenerateOperation(w http.ResponseWriter, r *http.Request) {
	if a.rejectDryRun(w) {
		return
	}

	operationID := chi.URLParam(r, "operationId")
	cfg, err := decodeConfig(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if cfg == nil {
		cfg = genconfig.New(genconfig.TypeOperation)
	}

	operation, ok := cfg.(*genconfig.OperationConfig)
	if !ok {
		respondError(w, &genconfig.ValidationError{Reason: fmt.Sprintf("config type %q does not match an operation request", cfg.ConfigType())})
		return
	}
	if operation.OperationID == "" {
		operation.OperationID = operationID
	}
	if operation.OperationID != operationID {
		respondError(w, &genconfig.ValidationError{Reason: fmt.Sprintf("config operation id %q does not match path operation id %q", operation.OperationID, operationID)})
		return
	}

	a.accept(w, r, operation, operationID)
}

func (a *API) handleGenerateAnalysis(w http.ResponseWriter, r *http.Request) {
	if a.rejectDryRun(w) {
		return
	}

	cfg, err := decodeConfig(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if cfg == nil {
		respondError(w, &genconfig.ValidationError{Reason: "an analysis config body is required"})
		return
	}

	analysis, ok := cfg.(*genconfig.DeliverableAnalysisConfig)
	if !ok {
		respondError(w, &genconfig.ValidationError{Reason: fmt.Sprintf("config type %q does not match an analysis request", cfg.ConfigType())})
		return
	}

	a.accept(w, r, analysis, analysis.MilestoneID)
}

func (a *API) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	if a.rejectDryRun(w) {
		return
	}

	cfg, err := decodeConfig(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if cfg == nil {
		respondError(w, &genconfig.ValidationError{Reason: "an image config body is required"})
		return
	}

	image, ok := cfg.(*genconfig.SyftImageConfig)
	if !ok {
		respondError(w, &genconfig.ValidationError{Reason: fmt.Sprintf("config type %q does not match an image request", cfg.ConfigType())})
		return
	}

	a.accept(w, r, image, image.Image)
}

func (a *API) handleGenerateBrewRPM(w http.ResponseWriter, r *http.Request) {
	if a.rejectDryRun(w) {
		return
	}

	advisoryID := chi.URLParam(r, "advisoryId")
	cfg, err := decodeConfig(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if cfg == nil {
		cfg = genconfig.New(genconfig.TypeBrewRPM)
	}

	rpm, ok := cfg.(*genconfig.BrewRPMConfig)
	if !ok {
		respondError(w, &genconfig.ValidationError{Reason: fmt.Sprintf("config type %q does not match an advisory request", cfg.ConfigType())})
		return
	}
	if rpm.AdvisoryID == "" {
		rpm.AdvisoryID = advisoryID
	}
	if rpm.AdvisoryID != advisoryID {
		respondError(w, &genconfig.ValidationError{Reason: fmt.Sprintf("config advisory id %q does not match path advisory id %q", rpm.AdvisoryID, advisoryID)})
		return
	}

	a.accept(w, r, rpm, advisoryID)
}
