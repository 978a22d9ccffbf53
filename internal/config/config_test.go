package config_test

import (
	"runtime"
	"testing"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.MetricsAddr, convey.ShouldEqual, ":9090")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.FeatureSchemaVersion, convey.ShouldEqual, 1)
			convey.So(cfg.SkillDimension, convey.ShouldEqual, 8)
			convey.So(cfg.DisparityScope, convey.ShouldEqual, config.ScopeAggregate)
			convey.So(cfg.NATSSubjectPrefix, convey.ShouldEqual, "pmis")
		})

		convey.Convey("Then the default factor weights should sum to one", func() {
			sum := 0.0
			for _, w := range cfg.FactorWeights {
				sum += w
			}
			convey.So(sum, convey.ShouldAlmostEqual, 1.0, 1e-9)
		})

		convey.Convey("Then the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config under validation", t, func() {
		convey.Convey("When factor weights do not sum to one", func() {
			cfg := config.New()
			cfg.FactorWeights[config.FactorSkillSimilarity] = 0.9

			convey.Convey("Then validation fails with ErrInvalidConfig", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "factor weights sum")
			})
		})

		convey.Convey("When a factor weight is negative", func() {
			cfg := config.New()
			cfg.FactorWeights[config.FactorGeographyFit] = -0.2
			cfg.FactorWeights[config.FactorSkillSimilarity] = 0.8

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When an unknown factor is configured", func() {
			cfg := config.New()
			cfg.FactorWeights = map[string]float64{"charisma": 1.0}

			convey.Convey("Then validation fails", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "unknown scoring factor")
			})
		})

		convey.Convey("When the worker count is not positive", func() {
			cfg := config.New()
			cfg.WorkerCount = 0

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the disparity scope is unknown", func() {
			cfg := config.New()
			cfg.DisparityScope = "per_district"

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the disparity tolerance is out of range", func() {
			cfg := config.New()
			cfg.DisparityTolerance = 1.5

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the geography partial credit is out of range", func() {
			cfg := config.New()
			cfg.GeographyPartialCredit = -0.1

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the default max fraction is zero", func() {
			cfg := config.New()
			cfg.DefaultMaxFraction = 0

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})
	})
}
