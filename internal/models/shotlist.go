// internal/models/shotlist.go
package models

import (
	"time"
)

// Budget / crew / coverage tiers. The datastore keeps whatever the caller
// supplies; tier validation happens at project creation.
const (
	BudgetMicro    = "micro"
	BudgetLow      = "low"
	BudgetModerate = "moderate"

	CrewSkeleton = "skeleton"
	CrewSmall    = "small"
	CrewStandard = "standard"

	CoverageMinimal  = "minimal"
	CoverageStandard = "standard"
	CoverageSafety   = "safety"
)

// Reference kinds and provider tags.
const (
	ReferenceKindRecommended  = "recommended_image"
	ReferenceKindExternalLink = "external_link"

	ProviderPexels   = "pexels"
	ProviderFrameset = "frameset"
)

// ProjectConstraints are immutable generation inputs, never generation outputs.
type ProjectConstraints struct {
	Budget       string `json:"budget"`
	CrewSize     string `json:"crew_size"`
	CoverageMode string `json:"coverage_mode"`
}

// StyleProfile is produced wholly by the style stage and overwritten in place
// on regeneration. It is never hand-edited field by field.
type StyleProfile struct {
	CameraEnergy        string             `json:"camera_energy"`
	MovementFrequency   string             `json:"movement_frequency"`
	LensBias            LensBias           `json:"lens_bias"`
	FramingBias         []string           `json:"framing_bias"`
	LightingPhilosophy  LightingPhilosophy `json:"lighting_philosophy"`
	ColorBias           StyleColorBias     `json:"color_bias"`
	Texture             []string           `json:"texture"`
	CoveragePhilosophy  string             `json:"coverage_philosophy"`
	DirectingPriorities []string           `json:"directing_priorities"`
}

type LensBias struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

type LightingPhilosophy struct {
	KeyStyle      string `json:"key_style"`
	SourceBias    string `json:"source_bias"`
	ContrastLevel string `json:"contrast_level"`
}

type StyleColorBias struct {
	Temperature string `json:"temperature"`
	Saturation  string `json:"saturation"`
}

// ReferenceTargets name the five looks a shot's reference images should hit.
type ReferenceTargets struct {
	Lighting string `json:"lighting"`
	Framing  string `json:"framing"`
	Movement string `json:"movement"`
	Depth    string `json:"depth"`
	Texture  string `json:"texture"`
}

type Project struct {
	ID           string             `gorm:"primaryKey;type:varchar(64)" json:"id"`
	UserID       string             `gorm:"index;type:varchar(64);not null" json:"user_id"`
	Title        string             `gorm:"not null" json:"title"`
	ProjectType  string             `json:"project_type"`
	ScriptText   string             `json:"script_text,omitempty"`
	LookWords    StringList         `gorm:"type:text" json:"look_words"`
	Constraints  ProjectConstraints `gorm:"type:text" json:"constraints"`
	StyleProfile *StyleProfile      `gorm:"type:text" json:"style_profile,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`

	Scenes []Scene `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"scenes,omitempty"`
}

type Scene struct {
	ID          string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID   string     `gorm:"index;type:varchar(64);not null" json:"project_id"`
	SceneNumber int        `json:"scene_number"`
	IntExt      string     `json:"int_ext"`
	Location    string     `json:"location"`
	TimeOfDay   string     `json:"time_of_day"`
	Characters  StringList `gorm:"type:text" json:"characters"`
	BeatSummary string     `json:"beat_summary"`
	CreatedAt   time.Time  `json:"created_at"`

	Shots []Shot `gorm:"foreignKey:SceneID;constraint:OnDelete:CASCADE" json:"shots,omitempty"`
}

type Shot struct {
	ID               string            `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SceneID          string            `gorm:"index;type:varchar(64);not null" json:"scene_id"`
	ShotCode         string            `json:"shot_code"`
	PositionIndex    int               `json:"position_index"`
	ShotSize         string            `json:"shot_size"`
	Angle            string            `json:"angle"`
	Movement         string            `json:"movement"`
	LensSuggestion   string            `json:"lens_suggestion"`
	BlockingNotes    string            `json:"blocking_notes"`
	IntentText       string            `json:"intent_text"`
	AudioNotes       string            `json:"audio_notes"`
	TimeCostEstimate string            `json:"time_cost_estimate"`
	ReferenceTargets *ReferenceTargets `gorm:"type:text" json:"reference_targets,omitempty"`
	SearchPrompts    StringList        `gorm:"type:text" json:"search_prompts,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`

	References []ShotReference `gorm:"foreignKey:ShotID;constraint:OnDelete:CASCADE" json:"references,omitempty"`
}

type ShotReference struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ShotID          string    `gorm:"index;type:varchar(64);not null" json:"shot_id"`
	Kind            string    `gorm:"index;type:varchar(32);not null" json:"kind"`
	Provider        string    `json:"provider"`
	URL             string    `json:"url"`
	PreviewURL      *string   `json:"preview_url,omitempty"`
	AttributionText *string   `json:"attribution_text,omitempty"`
	AttributionURL  *string   `json:"attribution_url,omitempty"`
	LicenseInfo     *string   `json:"license_info,omitempty"`
	WhyThisWorks    *string   `json:"why_this_works,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
