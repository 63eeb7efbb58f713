// Package generator is the worker consuming accepted generation requests,
// running the external generator tool and recording produced manifests.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"sbomd/pkg/bus"
	"sbomd/pkg/genconfig"
	"sbomd/pkg/s3"
	"sbomd/services/generations"
)

const durableName = "sbomd-generator"

// Config controls worker behaviour.
type Config struct {
	// Concurrency caps parallel tasks per request.
	Concurrency int
	// ArchiveBucket enables compressed manifest archival when set.
	ArchiveBucket string
}

// Worker consumes request-created events and drives requests to a terminal
// state.
type Worker struct {
	svc     *generations.Service
	bus     *bus.Bus
	runner  Runner
	archive *s3.Client
	config  Config
	logger  *log.Logger

	subsMu sync.Mutex
	subs   []io.Closer
}

// NewWorker creates a worker bound to the provided dependencies. The archive
// client may be nil.
func NewWorker(svc *generations.Service, eventBus *bus.Bus, runner Runner, archive *s3.Client, cfg Config, logger *log.Logger) (*Worker, error) {
	if svc == nil {
		return nil, errors.New("generations service is required")
	}
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Worker{
		svc:     svc,
		bus:     eventBus,
		runner:  runner,
		archive: archive,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Start registers the durable subscription and begins processing events.
func (w *Worker) Start(ctx context.Context) error {
	if w.bus == nil {
		return errors.New("bus is required")
	}

	closer, err := w.bus.Subscribe(ctx, bus.SubjectRequestCreated, durableName, w.handleCreated)
	if err != nil {
		return err
	}

	w.subsMu.Lock()
	w.subs = append(w.subs, closer)
	w.subsMu.Unlock()
	return nil
}

// Close tears down active subscriptions.
func (w *Worker) Close() error {
	if w == nil {
		return nil
	}

	w.subsMu.Lock()
	defer w.subsMu.Unlock()

	var firstErr error
	for _, sub := range w.subs {
		if sub == nil {
			continue
		}
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	w.subs = nil
	return firstErr
}

func (w *Worker) handleCreated(ctx context.Context, data []byte) error {
	var event generations.StatusChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return err
	}
	if event.RequestID == "" {
		return errors.New("request_id missing from created event")
	}

	req, err := w.svc.GetRequest(ctx, event.RequestID)
	if err != nil {
		if errors.Is(err, generations.ErrNotFound) {
			w.logger.Printf("WARN dropping event for unknown request %s", event.RequestID)
			return nil
		}
		return err
	}
	if req.Status.Terminal() {
		return nil
	}

	cfg, err := genconfig.Parse(req.Config)
	if err != nil || cfg == nil {
		// The snapshot was validated at intake; a broken one cannot recover
		// through redelivery.
		return w.svc.Finalize(ctx, req.ID, generations.ResultFailure,
			fmt.Sprintf("stored config is unreadable: %v", err))
	}

	if err := w.svc.MarkInProgress(ctx, req.ID); err != nil {
		if errors.Is(err, generations.ErrStaleState) {
			return nil
		}
		return err
	}

	return w.process(ctx, req, cfg)
}

// process runs all tasks for a request and finalizes it once. Sub-tasks may
// finish in any order; the outcome is aggregated over the full set, so a
// single failure fails the request while manifests from succeeded siblings
// are kept.
func (w *Worker) process(ctx context.Context, req generations.GenerationRequest, cfg genconfig.Config) error {
	tasks := tasksFor(req.ID, cfg)
	if len(tasks) == 0 {
		return w.svc.Finalize(ctx, req.ID, generations.ResultFailure, "config expands to no generation tasks")
	}

	failures := make([]string, len(tasks))
	sem := make(chan struct{}, w.config.Concurrency)
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := w.runTask(ctx, task); err != nil {
				w.logger.Printf("ERROR task %s: %v", task, err)
				failures[i] = err.Error()
			}
		}(i, task)
	}
	wg.Wait()

	var failed []string
	for _, reason := range failures {
		if reason != "" {
			failed = append(failed, reason)
		}
	}

	if len(failed) > 0 {
		reason := fmt.Sprintf("%d of %d tasks failed: %s", len(failed), len(tasks), strings.Join(failed, "; "))
		return w.svc.Finalize(ctx, req.ID, generations.ResultFailure, reason)
	}
	return w.svc.Finalize(ctx, req.ID, generations.ResultSuccess, "")
}

func (w *Worker) runTask(ctx context.Context, task Task) error {
	bom, err := w.runner.Run(ctx, task)
	if err != nil {
		return err
	}

	sbom, err := w.svc.RecordManifest(ctx, task.RequestID, rootPurl(bom), bom)
	if err != nil {
		return fmt.Errorf("record manifest: %w", err)
	}

	if w.archive != nil && w.config.ArchiveBucket != "" {
		if err := w.archiveManifest(ctx, sbom.ID, bom); err != nil {
			// The manifest is durable in the database; archival is best-effort.
			w.logger.Printf("WARN archive manifest %s: %v", sbom.ID, err)
		}
	}
	return nil
}

// rootPurl extracts the package URL of the root component from a CycloneDX
// document.
func rootPurl(bom json.RawMessage) string {
	var doc struct {
		Metadata struct {
			Component struct {
				Purl string `json:"purl"`
			} `json:"component"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(bom, &doc); err != nil {
		return ""
	}
	return doc.Metadata.Component.Purl
}
