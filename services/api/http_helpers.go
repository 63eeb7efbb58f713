package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"sbomd/pkg/genconfig"
	"sbomd/pkg/paging"
	"sbomd/pkg/rsql"
	"sbomd/services/generations"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError maps an error to its status code and writes the error body.
// Internal details never leak past the correlation id.
func respondError(w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "an internal error occurred"
	}

	respondJSON(w, status, map[string]any{
		"error":   message,
		"errorId": uuid.NewString(),
	})
}

func statusFor(err error) int {
	var (
		formatErr     *genconfig.FormatError
		parseErr      *genconfig.ParseError
		validationErr *genconfig.ValidationError
		syntaxErr     *rsql.SyntaxError
		unknownField  *rsql.UnknownFieldError
		paginationErr *paging.InvalidPaginationError
	)

	switch {
	case errors.As(err, &formatErr),
		errors.As(err, &parseErr),
		errors.As(err, &validationErr),
		errors.As(err, &syntaxErr),
		errors.As(err, &unknownField),
		errors.As(err, &paginationErr):
		return http.StatusBadRequest
	case errors.Is(err, generations.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, generations.ErrStaleState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeConfig reads an optional request body carrying a configuration in
// JSON or YAML. An empty body yields (nil, nil).
func decodeConfig(r *http.Request) (genconfig.Config, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	return genconfig.Parse(data)
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}
