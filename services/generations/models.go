package generations

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the tables owned by this package. Production
// deployments use the goose migrations instead; this is for embedded and test
// databases.
func AutoMigrate(orm *gorm.DB) error {
	return orm.AutoMigrate(&generationRequestModel{}, &sbomModel{})
}

// Column types are left to the dialect so the models work on both postgres
// and the embedded sqlite driver; the goose migration pins the postgres types.
type generationRequestModel struct {
	ID           string         `gorm:"type:text;primaryKey"`
	Identifier   string         `gorm:"type:text;not null;index"`
	Type         string         `gorm:"type:text;not null"`
	Status       string         `gorm:"type:text;not null;index"`
	Result       string         `gorm:"type:text"`
	Reason       string         `gorm:"type:text"`
	Config       datatypes.JSON `gorm:"type:jsonb"`
	EnvConfig    datatypes.JSON `gorm:"type:jsonb"`
	CreationTime time.Time      `gorm:"not null;index"`
	Version      int            `gorm:"not null;default:0"`
}

func (generationRequestModel) TableName() string { return "generation_requests" }

func (m generationRequestModel) toAPI() GenerationRequest {
	return GenerationRequest{
		ID:           m.ID,
		Identifier:   m.Identifier,
		Type:         RequestType(m.Type),
		Status:       Status(m.Status),
		Result:       Result(m.Result),
		Reason:       m.Reason,
		Config:       json.RawMessage(m.Config),
		EnvConfig:    json.RawMessage(m.EnvConfig),
		CreationTime: m.CreationTime,
	}
}

type sbomModel struct {
	ID                  string         `gorm:"type:text;primaryKey"`
	Identifier          string         `gorm:"type:text;not null;index"`
	RootPurl            string         `gorm:"type:text;index"`
	Bom                 datatypes.JSON `gorm:"type:jsonb"`
	CreationTime        time.Time      `gorm:"not null;index"`
	GenerationRequestID string         `gorm:"type:text;not null;index"`
}

func (sbomModel) TableName() string { return "sboms" }

func (m sbomModel) toAPI() Sbom {
	return Sbom{
		ID:                  m.ID,
		Identifier:          m.Identifier,
		RootPurl:            m.RootPurl,
		Bom:                 json.RawMessage(m.Bom),
		CreationTime:        m.CreationTime,
		GenerationRequestID: m.GenerationRequestID,
	}
}
