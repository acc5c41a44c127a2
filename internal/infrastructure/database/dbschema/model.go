package dbschema

import (
	"encoding/json"

	"gorm.io/datatypes"

	"modelgate/services/catalog-api/internal/domain/catalog"
	"modelgate/services/catalog-api/internal/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(Model{})
}

type Model struct {
	BaseModel
	PublicID                string         `gorm:"size:64;not null;uniqueIndex"`
	ProviderID              uint           `gorm:"not null;index;uniqueIndex:ux_models_provider_model,priority:1"`
	ProviderModelID         string         `gorm:"size:255;not null;uniqueIndex:ux_models_provider_model,priority:2"`
	DisplayName             string         `gorm:"size:255;not null"`
	Description             string         `gorm:"type:text"`
	ContextLength           int            `gorm:"not null;default:0"`
	Modality                string         `gorm:"size:64;not null;default:'text'"`
	SupportsStreaming       *bool          `gorm:"not null;default:false"`
	SupportsFunctionCalling *bool          `gorm:"not null;default:false"`
	SupportsVision          *bool          `gorm:"not null;default:false"`
	Active                  *bool          `gorm:"not null;default:true;index"`
	HealthStatus            string         `gorm:"size:16;not null;default:'unknown'"`
	Metadata                datatypes.JSON `gorm:"type:jsonb"`
}

func NewSchemaModel(m *catalog.CatalogModel) (*Model, error) {
	if m == nil {
		return nil, nil
	}

	var metadataJSON datatypes.JSON
	if m.Metadata != nil {
		data, err := json.Marshal(m.Metadata)
		if err != nil {
			return nil, err
		}
		metadataJSON = datatypes.JSON(data)
	}

	streaming := m.Capabilities.Streaming
	functionCalling := m.Capabilities.FunctionCalling
	vision := m.Capabilities.Vision
	active := m.Active

	return &Model{
		BaseModel: BaseModel{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		PublicID:                m.PublicID,
		ProviderID:              m.ProviderID,
		ProviderModelID:         m.ProviderModelID,
		DisplayName:             m.DisplayName,
		Description:             m.Description,
		ContextLength:           m.ContextLength,
		Modality:                m.Modality,
		SupportsStreaming:       &streaming,
		SupportsFunctionCalling: &functionCalling,
		SupportsVision:          &vision,
		Active:                  &active,
		HealthStatus:            string(m.HealthStatus),
		Metadata:                metadataJSON,
	}, nil
}

// EtoD converts a database model row into its domain representation.
func (m *Model) EtoD() (*catalog.CatalogModel, error) {
	var metadata map[string]any
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return nil, err
		}
	}

	streaming := false
	if m.SupportsStreaming != nil {
		streaming = *m.SupportsStreaming
	}
	functionCalling := false
	if m.SupportsFunctionCalling != nil {
		functionCalling = *m.SupportsFunctionCalling
	}
	vision := false
	if m.SupportsVision != nil {
		vision = *m.SupportsVision
	}
	active := false
	if m.Active != nil {
		active = *m.Active
	}

	healthStatus := catalog.HealthStatus(m.HealthStatus)
	if healthStatus == "" {
		healthStatus = catalog.HealthUnknown
	}

	return &catalog.CatalogModel{
		ID:              m.ID,
		PublicID:        m.PublicID,
		ProviderID:      m.ProviderID,
		ProviderModelID: m.ProviderModelID,
		DisplayName:     m.DisplayName,
		Description:     m.Description,
		ContextLength:   m.ContextLength,
		Modality:        m.Modality,
		Capabilities: catalog.CapabilityFlags{
			Streaming:       streaming,
			FunctionCalling: functionCalling,
			Vision:          vision,
		},
		Active:       active,
		HealthStatus: healthStatus,
		Metadata:     metadata,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}
