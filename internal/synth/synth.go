// Package synth generates synthetic allocation batches for demos, load
// tests and CLI experiments. Generation is seeded: identical seeds must
// reproduce identical batches.
package synth

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/feature"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/intake"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/internal/domain/model"
	"github.com/narendrakadam1/Allocation-Engine-PM-internship/pkg/logger"
)

// Skill profile cases.
const (
	caseSpecialist = 0
	caseGeneralist = 1
	caseNovice     = 2
	caseTwinPeak   = 3

	skillCaseCount = 4
)

// Component ranges per skill profile.
const (
	baseLowMin       = 0.05
	baseLowRange     = 0.15
	specialistMin    = 0.75
	specialistRange  = 0.20
	generalistMin    = 0.35
	generalistRange  = 0.30
	noviceMin        = 0.10
	noviceRange      = 0.20
	scalarValueScale = 10
)

// Capacity and reservation bounds for generated slots.
const (
	maxSlotCapacity   = 5
	maxReservedSeats  = 2
	maxCandidateTags  = 3
	constraintSpan    = 2
	submitGapSeconds  = 7
	orgPerSlotDivisor = 3
)

var sectors = []string{
	"agriculture", "data", "design", "education", "engineering",
	"finance", "healthcare", "manufacturing", "marketing",
	"operations", "policy", "research", "retail", "software",
}

var regions = map[string][]string{
	"gujarat":     {"ahmedabad", "surat", "vadodara", "rajkot"},
	"karnataka":   {"bengaluru", "mysuru", "hubballi"},
	"maharashtra": {"pune", "nagpur", "nashik", "amravati", "latur"},
	"rajasthan":   {"jaipur", "jodhpur", "udaipur"},
}

// Config holds generation parameters for one synthetic batch.
type Config struct {
	Candidates int   // Number of candidate rows
	Slots      int   // Number of slot rows
	Seed       int64 // Seed for the deterministic source
	SkillDim   int   // Embedding dimension

	// CategoryShares fixes the fraction of candidates per protected
	// category; the remainder declares none.
	CategoryShares map[string]float64

	// ReservedShare is the fraction of slots carrying reserved seats.
	ReservedShare float64

	// ConstraintShare is the fraction of candidates declaring district
	// or sector constraints.
	ConstraintShare float64

	// Quotas emits round-level minimum fractions for every category in
	// CategoryShares.
	Quotas bool
}

func (c Config) withDefaults() Config {
	if c.Candidates <= 0 {
		c.Candidates = 200
	}
	if c.Slots <= 0 {
		c.Slots = 40
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.SkillDim < 2 {
		c.SkillDim = 8
	}
	if c.CategoryShares == nil {
		c.CategoryShares = map[string]float64{
			"pwd":   0.05,
			"rural": 0.20,
			"sc-st": 0.15,
		}
	}
	if c.ReservedShare == 0 {
		c.ReservedShare = 0.3
	}
	if c.ConstraintShare == 0 {
		c.ConstraintShare = 0.25
	}
	return c
}

// Generator produces batches from one seeded source. Not safe for
// concurrent use; create one per batch.
type Generator struct {
	cfg        Config
	rng        *rand.Rand
	categories []string
	regionKeys []string
	log        logger.Logger
}

// New creates a Generator for the given config.
func New(cfg Config) *Generator {
	cfg = cfg.withDefaults()

	// Map iteration order would leak into the output; fix it.
	categories := make([]string, 0, len(cfg.CategoryShares))
	for cat := range cfg.CategoryShares {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	regionKeys := make([]string, 0, len(regions))
	for r := range regions {
		regionKeys = append(regionKeys, r)
	}
	sort.Strings(regionKeys)

	return &Generator{
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // G404: deterministic fixtures, not security material
		categories: categories,
		regionKeys: regionKeys,
		log:        logger.Named("synth"),
	}
}

// Generate builds one full batch: candidates, slots and optional quotas.
func (g *Generator) Generate(ctx context.Context) (intake.Batch, error) {
	g.log.Info(ctx, "generating batch",
		logger.Int("candidates", g.cfg.Candidates),
		logger.Int("slots", g.cfg.Slots),
		logger.Any("seed", g.cfg.Seed),
	)

	base := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)

	var batch intake.Batch
	batch.Candidates = make([]intake.RawCandidate, 0, g.cfg.Candidates)
	for i := 0; i < g.cfg.Candidates; i++ {
		if err := ctx.Err(); err != nil {
			return intake.Batch{}, fmt.Errorf("generation cancelled: %w", err)
		}
		batch.Candidates = append(batch.Candidates, g.candidate(i, base))
	}

	batch.Slots = make([]intake.RawSlot, 0, g.cfg.Slots)
	for i := 0; i < g.cfg.Slots; i++ {
		if err := ctx.Err(); err != nil {
			return intake.Batch{}, fmt.Errorf("generation cancelled: %w", err)
		}
		batch.Slots = append(batch.Slots, g.slot(i))
	}

	if g.cfg.Quotas {
		for _, cat := range g.categories {
			batch.Quotas = append(batch.Quotas, model.Quota{
				Category:    model.Category(cat),
				MinFraction: g.cfg.CategoryShares[cat] / 2,
			})
		}
	}

	g.log.Info(ctx, "batch generated",
		logger.Int("candidates", len(batch.Candidates)),
		logger.Int("slots", len(batch.Slots)),
		logger.Int("quotas", len(batch.Quotas)),
	)
	return batch, nil
}

func (g *Generator) candidate(index int, base time.Time) intake.RawCandidate {
	region, district := g.place()

	raw := intake.RawCandidate{
		ID:          fmt.Sprintf("cand-%05d", index+1),
		SubmittedAt: base.Add(time.Duration(index*submitGapSeconds) * time.Second),
		Category:    g.category(),
		Features: feature.Raw{
			SchemaVersion:   1,
			Skills:          g.skillVector(),
			ExperienceYears: ptr(g.scalar()),
			Rating:          ptr(g.scalar()),
			Tags:            g.tags(1 + g.rng.Intn(maxCandidateTags)),
			District:        district,
			Region:          region,
		},
	}

	if g.rng.Float64() < g.cfg.ConstraintShare {
		raw.Constraints = g.constraints(region, district)
	}
	return raw
}

func (g *Generator) slot(index int) intake.RawSlot {
	region, district := g.place()
	sector := sectors[g.rng.Intn(len(sectors))]
	capacity := 1 + g.rng.Intn(maxSlotCapacity)

	slot := intake.RawSlot{
		ID:       fmt.Sprintf("slot-%04d", index+1),
		OrgID:    fmt.Sprintf("org-%03d", index/orgPerSlotDivisor+1),
		Capacity: capacity,
		Sector:   sector,
		Features: feature.Raw{
			SchemaVersion: 1,
			Skills:        g.skillVector(),
			Tags:          []string{sector},
			District:      district,
			Region:        region,
		},
	}

	if g.rng.Float64() < g.cfg.ReservedShare {
		seats := 1 + g.rng.Intn(maxReservedSeats)
		if seats > capacity {
			seats = capacity
		}
		cat := g.categories[g.rng.Intn(len(g.categories))]
		slot.Reserved = map[string]int{cat: seats}
	}
	return slot
}

// skillVector draws one embedding from a handful of profile shapes so
// batches contain both near and distant matches.
func (g *Generator) skillVector() []float64 {
	v := make([]float64, g.cfg.SkillDim)
	switch g.rng.Intn(skillCaseCount) {
	case caseSpecialist:
		for i := range v {
			v[i] = baseLowMin + g.rng.Float64()*baseLowRange
		}
		v[g.rng.Intn(len(v))] = specialistMin + g.rng.Float64()*specialistRange
	case caseGeneralist:
		for i := range v {
			v[i] = generalistMin + g.rng.Float64()*generalistRange
		}
	case caseNovice:
		for i := range v {
			v[i] = noviceMin + g.rng.Float64()*noviceRange
		}
	default: // caseTwinPeak
		for i := range v {
			v[i] = baseLowMin + g.rng.Float64()*baseLowRange
		}
		first := g.rng.Intn(len(v))
		second := (first + 1 + g.rng.Intn(len(v)-1)) % len(v)
		v[first] = specialistMin + g.rng.Float64()*specialistRange
		v[second] = specialistMin + g.rng.Float64()*specialistRange
	}
	return v
}

func (g *Generator) category() string {
	roll := g.rng.Float64()
	acc := 0.0
	for _, cat := range g.categories {
		acc += g.cfg.CategoryShares[cat]
		if roll < acc {
			return cat
		}
	}
	return ""
}

func (g *Generator) place() (region, district string) {
	region = g.regionKeys[g.rng.Intn(len(g.regionKeys))]
	pool := regions[region]
	return region, pool[g.rng.Intn(len(pool))]
}

func (g *Generator) tags(n int) []string {
	picked := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(picked) < n {
		s := sectors[g.rng.Intn(len(sectors))]
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		picked = append(picked, s)
	}
	return picked
}

// constraints always admit the candidate's own district so generated
// rows never strand themselves.
func (g *Generator) constraints(region, district string) model.Constraints {
	pool := regions[region]
	districts := []string{district}
	for len(districts) < constraintSpan {
		d := pool[g.rng.Intn(len(pool))]
		if d != district {
			districts = append(districts, d)
		}
		if len(pool) < constraintSpan {
			break
		}
	}
	return model.Constraints{Districts: districts}
}

// scalar draws a value in [0,10] rounded to one decimal.
func (g *Generator) scalar() float64 {
	return math.Round(g.rng.Float64()*scalarValueScale*10) / 10
}

func ptr(v float64) *float64 { return &v }
