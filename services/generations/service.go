package generations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"sbomd/pkg/bus"
	"sbomd/pkg/genconfig"
)

// Publisher is the event sink for status changes. *bus.Bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, subject string, v any) error
}

// Service owns generation request state and stored manifests.
type Service struct {
	orm *gorm.DB
	bus Publisher
}

// NewService creates a Service bound to the provided dependencies. A nil
// publisher disables event publishing.
func NewService(orm *gorm.DB, publisher Publisher) (*Service, error) {
	if orm == nil {
		return nil, errors.New("orm is required")
	}
	return &Service{orm: orm, bus: publisher}, nil
}

// CreateRequest validates and snapshots the configuration, persists a new
// request and announces it. An empty configuration produces a request that is
// immediately terminal with status NO_OP.
func (s *Service) CreateRequest(ctx context.Context, cfg genconfig.Config, identifier string, envConfig map[string]string) (GenerationRequest, error) {
	if err := genconfig.Validate(cfg); err != nil {
		return GenerationRequest{}, err
	}

	configJSON, err := genconfig.ToJSON(cfg)
	if err != nil {
		return GenerationRequest{}, err
	}

	var envJSON datatypes.JSON
	if len(envConfig) > 0 {
		data, err := json.Marshal(envConfig)
		if err != nil {
			return GenerationRequest{}, err
		}
		envJSON = datatypes.JSON(data)
	}

	model := generationRequestModel{
		ID:           uuid.NewString(),
		Identifier:   identifier,
		Type:         string(RequestTypeFor(cfg.ConfigType())),
		Status:       string(StatusNew),
		Config:       datatypes.JSON(configJSON),
		EnvConfig:    envJSON,
		CreationTime: time.Now().UTC(),
	}
	if cfg.IsEmpty() {
		model.Status = string(StatusNoOp)
		model.Reason = "nothing to generate for an empty config"
	}

	if err := s.orm.WithContext(ctx).Create(&model).Error; err != nil {
		return GenerationRequest{}, err
	}

	if model.Status == string(StatusNew) {
		s.publish(ctx, bus.SubjectRequestCreated, model)
	}
	s.publish(ctx, bus.SubjectRequestUpdated, model)

	return model.toAPI(), nil
}

// MarkInProgress transitions a NEW request to IN_PROGRESS. A request already
// in progress is left untouched; a terminal request yields ErrStaleState.
func (s *Service) MarkInProgress(ctx context.Context, id string) error {
	res := s.orm.WithContext(ctx).
		Model(&generationRequestModel{}).
		Where("id = ? AND status = ?", id, StatusNew).
		Updates(map[string]any{
			"status":  string(StatusInProgress),
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return res.Error
	}

	var model generationRequestModel
	if err := s.orm.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if res.RowsAffected == 0 {
		if Status(model.Status) == StatusInProgress {
			return nil
		}
		return fmt.Errorf("%w: request %s is already %s", ErrStaleState, id, model.Status)
	}

	s.publish(ctx, bus.SubjectRequestUpdated, model)
	return nil
}

// RecordManifest appends one manifest produced for a request. Existing
// sibling manifests are never overwritten.
func (s *Service) RecordManifest(ctx context.Context, requestID, rootPurl string, bom json.RawMessage) (Sbom, error) {
	var request generationRequestModel
	if err := s.orm.WithContext(ctx).First(&request, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Sbom{}, ErrNotFound
		}
		return Sbom{}, err
	}

	creationTime := time.Now().UTC()
	if creationTime.Before(request.CreationTime) {
		creationTime = request.CreationTime
	}

	model := sbomModel{
		ID:                  uuid.NewString(),
		Identifier:          request.Identifier,
		RootPurl:            rootPurl,
		Bom:                 datatypes.JSON(bom),
		CreationTime:        creationTime,
		GenerationRequestID: request.ID,
	}
	if err := s.orm.WithContext(ctx).Create(&model).Error; err != nil {
		return Sbom{}, err
	}
	return model.toAPI(), nil
}

const finalizeAttempts = 5

// Finalize records the terminal outcome of a request. The transition is an
// optimistic compare-and-swap on the row version, so of two concurrent calls
// exactly one wins. Repeating an outcome already recorded is a no-op; a
// conflicting outcome after a terminal state yields ErrStaleState.
func (s *Service) Finalize(ctx context.Context, id string, result Result, reason string) error {
	var target Status
	switch result {
	case ResultSuccess:
		target = StatusFinished
	case ResultFailure:
		target = StatusFailed
	default:
		return fmt.Errorf("invalid result %q", result)
	}

	for attempt := 0; attempt < finalizeAttempts; attempt++ {
		var model generationRequestModel
		if err := s.orm.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if Status(model.Status).Terminal() {
			if Status(model.Status) == target && Result(model.Result) == result {
				return nil
			}
			return fmt.Errorf("%w: request %s already finalized as %s", ErrStaleState, id, model.Status)
		}

		res := s.orm.WithContext(ctx).
			Model(&generationRequestModel{}).
			Where("id = ? AND version = ?", id, model.Version).
			Updates(map[string]any{
				"status":  string(target),
				"result":  string(result),
				"reason":  reason,
				"version": gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			model.Status = string(target)
			model.Result = string(result)
			model.Reason = reason
			s.publish(ctx, bus.SubjectRequestUpdated, model)
			return nil
		}
		// Version moved under us. Re-read and try again.
	}

	return fmt.Errorf("%w: request %s kept changing during finalize", ErrStaleState, id)
}

// GetRequest looks up one request by id.
func (s *Service) GetRequest(ctx context.Context, id string) (GenerationRequest, error) {
	var model generationRequestModel
	if err := s.orm.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return GenerationRequest{}, ErrNotFound
		}
		return GenerationRequest{}, err
	}
	return model.toAPI(), nil
}

// GetSbom looks up one manifest by id.
func (s *Service) GetSbom(ctx context.Context, id string) (Sbom, error) {
	var model sbomModel
	if err := s.orm.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Sbom{}, ErrNotFound
		}
		return Sbom{}, err
	}
	return model.toAPI(), nil
}

// GetSbomByPurl returns the most recently created manifest whose root
// component matches the given package URL.
func (s *Service) GetSbomByPurl(ctx context.Context, purl string) (Sbom, error) {
	var model sbomModel
	err := s.orm.WithContext(ctx).
		Where("root_purl = ?", purl).
		Order("creation_time DESC, id ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Sbom{}, ErrNotFound
		}
		return Sbom{}, err
	}
	return model.toAPI(), nil
}

// ManifestsForRequest lists all manifests recorded for a request in creation
// order.
func (s *Service) ManifestsForRequest(ctx context.Context, requestID string) ([]Sbom, error) {
	var models []sbomModel
	err := s.orm.WithContext(ctx).
		Where("generation_request_id = ?", requestID).
		Order("creation_time ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	sboms := make([]Sbom, 0, len(models))
	for _, m := range models {
		sboms = append(sboms, m.toAPI())
	}
	return sboms, nil
}

func (s *Service) publish(ctx context.Context, subject string, model generationRequestModel) {
	if s.bus == nil {
		return
	}
	event := StatusChangeEvent{
		RequestID:  model.ID,
		Identifier: model.Identifier,
		Type:       RequestType(model.Type),
		Status:     Status(model.Status),
		Result:     Result(model.Result),
		Reason:     model.Reason,
		Timestamp:  time.Now().UTC(),
	}
	// Publishing is best-effort; the stored row is the source of truth.
	_ = s.bus.Publish(ctx, subject, event)
}
