// Package api exposes the REST surface for submitting generation requests
// and browsing stored manifests.
package api

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sbomd/pkg/s3"
	"sbomd/services/generations"
)

const (
	serviceVersion   = "1.0.0"
	presignURLExpiry = 15 * time.Minute
)

// Store holds external dependencies required by the API layer.
type Store struct {
	DB          *pgxpool.Pool
	Generations *generations.Service
	S3          *s3.Client
}

// Config controls runtime behaviour for the API handlers.
type Config struct {
	// DryRun rejects all generation intake with 503 while leaving the read
	// side available.
	DryRun bool
	// ArchiveBucket names the bucket holding archived manifests. Empty
	// disables presigned archive links.
	ArchiveBucket string
}

// API wires dependencies and configuration for HTTP handlers.
type API struct {
	store   *Store
	config  Config
	started time.Time
}

// New initialises the API layer.
func New(store *Store, cfg Config) (*API, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if store.Generations == nil {
		return nil, errors.New("store generations service is required")
	}

	return &API{
		store:   store,
		config:  cfg,
		started: time.Now().UTC(),
	}, nil
}
