// Package config defines engine configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"runtime"
)

// Factor names recognized in FactorWeights, in declaration order.
const (
	FactorSkillSimilarity     = "skill_similarity"
	FactorPreferenceAlignment = "preference_alignment"
	FactorGeographyFit        = "geography_fit"
	FactorExperienceFit       = "experience_fit"
)

// Disparity scopes accepted by DisparityScope.
const (
	ScopeAggregate = "aggregate"
	ScopePerSlot   = "per_slot"
)

const weightSumTolerance = 1e-9

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// MetricsAddr configures the Prometheus scrape listener, e.g. ":9090".
	// Empty disables the listener.
	MetricsAddr string `koanf:"metrics_addr"`

	// QueueSize bounds the in-memory scoring queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// FeatureSchemaVersion is the normalization schema accepted at intake.
	FeatureSchemaVersion int `koanf:"feature_schema_version"`

	// SkillDimension is the required skill vector length.
	SkillDimension int `koanf:"skill_dimension"`

	// ExperienceCapYears bounds raw experience before rescaling to [0,1].
	ExperienceCapYears float64 `koanf:"experience_cap_years"`

	// TagVocabulary lists known preference tags. Unknown tags map to the
	// shared unknown bucket.
	TagVocabulary []string `koanf:"tag_vocabulary"`

	// FactorWeights maps scoring factor names to their weights. Weights
	// must be non-negative and sum to 1.0.
	FactorWeights map[string]float64 `koanf:"factor_weights"`

	// GeographyPartialCredit is the geography_fit subscore for a
	// same-region, different-district pair.
	GeographyPartialCredit float64 `koanf:"geography_partial_credit"`

	// DefaultMaxFraction caps a category's share of a slot when no quota
	// sets an explicit ceiling. 1.0 means no cap.
	DefaultMaxFraction float64 `koanf:"default_max_fraction"`

	// WaiveInfeasibleQuotas downgrades an infeasible quota schedule
	// (floors exceeding capacity) from a round failure to a recorded
	// waiver.
	WaiveInfeasibleQuotas bool `koanf:"waive_infeasible_quotas"`

	// WaiveUnmetFloors lets a round commit when a reserved floor cannot
	// be filled for lack of eligible candidates.
	WaiveUnmetFloors bool `koanf:"waive_unmet_floors"`

	// DisparityTolerance is the allowed gap between a category's
	// placement rate and the population average.
	DisparityTolerance float64 `koanf:"disparity_tolerance"`

	// DisparityScope selects disparity accounting: aggregate or per_slot.
	DisparityScope string `koanf:"disparity_scope"`

	// NATSURL connects the result publisher. Empty runs without a bus.
	NATSURL string `koanf:"nats_url"`

	// NATSSubjectPrefix prefixes published subjects, e.g.
	// pmis.round.committed.
	NATSSubjectPrefix string `koanf:"nats_subject_prefix"`

	// ProviderMaxRetries bounds feature provider retry attempts.
	ProviderMaxRetries int `koanf:"provider_max_retries"`

	// ProviderRetryInitialMS is the initial backoff interval.
	ProviderRetryInitialMS int `koanf:"provider_retry_initial_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		LogFormat:            "text",
		MetricsAddr:          ":9090",
		QueueSize:            100_000,
		WorkerCount:          runtime.NumCPU() * 2,
		FeatureSchemaVersion: 1,
		SkillDimension:       8,
		ExperienceCapYears:   10,
		TagVocabulary: []string{
			"agriculture", "data", "design", "education", "engineering",
			"finance", "healthcare", "manufacturing", "marketing",
			"operations", "policy", "research", "retail", "software",
		},
		FactorWeights: map[string]float64{
			FactorSkillSimilarity:     0.40,
			FactorPreferenceAlignment: 0.25,
			FactorGeographyFit:        0.20,
			FactorExperienceFit:       0.15,
		},
		GeographyPartialCredit: 0.5,
		DefaultMaxFraction:     1.0,
		WaiveInfeasibleQuotas:  false,
		WaiveUnmetFloors:       true,
		DisparityTolerance:     0.1,
		DisparityScope:         ScopeAggregate,
		NATSURL:                "",
		NATSSubjectPrefix:      "pmis",
		ProviderMaxRetries:     3,
		ProviderRetryInitialMS: 100,
	}
}

// Digest fingerprints the configuration that shapes allocation outcomes:
// normalization schema, scoring weights and fairness policy. Committed
// rounds record it so any result can be traced to the exact policy it ran
// under. Operational knobs (queue size, log level, addresses) are excluded.
func (c *Config) Digest() string {
	payload, err := json.Marshal(struct {
		SchemaVersion      int                `json:"schema_version"`
		SkillDimension     int                `json:"skill_dimension"`
		ExperienceCapYears float64            `json:"experience_cap_years"`
		TagVocabulary      []string           `json:"tag_vocabulary"`
		FactorWeights      map[string]float64 `json:"factor_weights"`
		GeographyCredit    float64            `json:"geography_partial_credit"`
		DefaultMaxFraction float64            `json:"default_max_fraction"`
		WaiveInfeasible    bool               `json:"waive_infeasible_quotas"`
		WaiveUnmetFloors   bool               `json:"waive_unmet_floors"`
		DisparityTolerance float64            `json:"disparity_tolerance"`
		DisparityScope     string             `json:"disparity_scope"`
	}{
		SchemaVersion:      c.FeatureSchemaVersion,
		SkillDimension:     c.SkillDimension,
		ExperienceCapYears: c.ExperienceCapYears,
		TagVocabulary:      c.TagVocabulary,
		FactorWeights:      c.FactorWeights,
		GeographyCredit:    c.GeographyPartialCredit,
		DefaultMaxFraction: c.DefaultMaxFraction,
		WaiveInfeasible:    c.WaiveInfeasibleQuotas,
		WaiveUnmetFloors:   c.WaiveUnmetFloors,
		DisparityTolerance: c.DisparityTolerance,
		DisparityScope:     c.DisparityScope,
	})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])[:16]
}

// Validate checks invariants the engine depends on.
func (c *Config) Validate() error {
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.SkillDimension <= 0 {
		return fmt.Errorf("%w: skill_dimension must be positive", ErrInvalidConfig)
	}
	if c.ExperienceCapYears <= 0 {
		return fmt.Errorf("%w: experience_cap_years must be positive", ErrInvalidConfig)
	}

	sum := 0.0
	for name, w := range c.FactorWeights {
		if w < 0 {
			return fmt.Errorf("%w: factor weight %s is negative", ErrInvalidConfig, name)
		}
		switch name {
		case FactorSkillSimilarity, FactorPreferenceAlignment, FactorGeographyFit, FactorExperienceFit:
		default:
			return fmt.Errorf("%w: unknown scoring factor %s", ErrInvalidConfig, name)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: factor weights sum to %v, want 1.0", ErrInvalidConfig, sum)
	}

	if c.GeographyPartialCredit < 0 || c.GeographyPartialCredit > 1 {
		return fmt.Errorf("%w: geography_partial_credit must be in [0,1]", ErrInvalidConfig)
	}
	if c.DefaultMaxFraction <= 0 || c.DefaultMaxFraction > 1 {
		return fmt.Errorf("%w: default_max_fraction must be in (0,1]", ErrInvalidConfig)
	}
	if c.DisparityTolerance < 0 || c.DisparityTolerance > 1 {
		return fmt.Errorf("%w: disparity_tolerance must be in [0,1]", ErrInvalidConfig)
	}
	if c.DisparityScope != ScopeAggregate && c.DisparityScope != ScopePerSlot {
		return fmt.Errorf("%w: disparity_scope must be %s or %s", ErrInvalidConfig, ScopeAggregate, ScopePerSlot)
	}
	if c.ProviderMaxRetries < 0 {
		return fmt.Errorf("%w: provider_max_retries must not be negative", ErrInvalidConfig)
	}
	if c.ProviderRetryInitialMS <= 0 {
		return fmt.Errorf("%w: provider_retry_initial_ms must be positive", ErrInvalidConfig)
	}
	return nil
}
