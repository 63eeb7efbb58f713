package generations

import (
	"context"

	"gorm.io/gorm"

	"sbomd/pkg/paging"
	"sbomd/pkg/rsql"
)

// Allow-lists mapping external query fields to columns. Anything outside
// these maps is rejected before a query reaches the database.
var (
	requestQueryFields = rsql.Mapping{
		"id":           "id",
		"identifier":   "identifier",
		"type":         "type",
		"status":       "status",
		"result":       "result",
		"creationTime": "creation_time",
	}

	sbomQueryFields = rsql.Mapping{
		"id":                  "id",
		"identifier":          "identifier",
		"rootPurl":            "root_purl",
		"creationTime":        "creation_time",
		"generationRequestId": "generation_request_id",
	}
)

// SearchRequests pages through generation requests matching an RSQL filter.
func (s *Service) SearchRequests(ctx context.Context, params paging.Params, filter, sort string) (paging.Page[GenerationRequest], error) {
	var models []generationRequestModel
	total, err := s.search(ctx, &generationRequestModel{}, &models, requestQueryFields, params, filter, sort)
	if err != nil {
		return paging.Page[GenerationRequest]{}, err
	}

	content := make([]GenerationRequest, 0, len(models))
	for _, m := range models {
		content = append(content, m.toAPI())
	}
	return paging.New(params.PageIndex, params.PageSize, total, content), nil
}

// SearchSboms pages through stored manifests matching an RSQL filter.
func (s *Service) SearchSboms(ctx context.Context, params paging.Params, filter, sort string) (paging.Page[Sbom], error) {
	var models []sbomModel
	total, err := s.search(ctx, &sbomModel{}, &models, sbomQueryFields, params, filter, sort)
	if err != nil {
		return paging.Page[Sbom]{}, err
	}

	content := make([]Sbom, 0, len(models))
	for _, m := range models {
		content = append(content, m.toAPI())
	}
	return paging.New(params.PageIndex, params.PageSize, total, content), nil
}

func (s *Service) search(ctx context.Context, model, dest any, fields rsql.Mapping, params paging.Params, filter, sort string) (int64, error) {
	query, err := rsql.Translate(filter, fields)
	if err != nil {
		return 0, err
	}
	orderBy, err := rsql.ParseSort(sort, fields)
	if err != nil {
		return 0, err
	}

	base := func() *gorm.DB {
		tx := s.orm.WithContext(ctx).Model(model)
		if query != nil {
			tx = tx.Where(query.Where, query.Args...)
		}
		return tx
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return 0, err
	}

	err = base().
		Order(orderBy).
		Offset(params.PageIndex * params.PageSize).
		Limit(params.PageSize).
		Find(dest).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
