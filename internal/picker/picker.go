// Package picker generates suggested lottery picks from draw history.
//
// A generation call loads the history, ranks main and special numbers by how
// often they were drawn, drops every main number seen in the most recent draws,
// and then samples combinations from what is left:
//
//	main pool    = top TopMain main numbers − main numbers of the first RecentDraws rows
//	special pool = top TopSpecial special numbers
//
// A sampled combination is accepted only when no two of its sorted numbers are
// consecutive integers. Sampling is bounded by MaxAttempts; an unsatisfiable pool
// fails with InsufficientCandidatesError instead of spinning forever.
package picker

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rewired-gh/powerpick/internal/config"
	"github.com/rewired-gh/powerpick/internal/history"
	"github.com/rewired-gh/powerpick/internal/logger"
	"github.com/rewired-gh/powerpick/internal/models"
)

// Default generation parameters.
const (
	DefaultPicks       = 5
	DefaultPickSize    = 5
	DefaultTopMain     = 20
	DefaultTopSpecial  = 10
	DefaultRecentDraws = 2
	DefaultMaxAttempts = 10000
)

// Options controls pool sizes and the shape of a batch. Zero values take the
// defaults. A negative RecentDraws disables the recency filter.
type Options struct {
	Picks       int // picks per batch
	PickSize    int // main numbers per pick
	TopMain     int
	TopSpecial  int
	RecentDraws int // leading history rows whose main numbers are excluded; <0 for none
	MaxAttempts int // sampling attempts per batch before giving up
}

// OptionsFromConfig maps the generator section of the configuration.
// recent_draws: 0 in the configuration turns the recency filter off.
func OptionsFromConfig(cfg config.GeneratorConfig) Options {
	recent := cfg.RecentDraws
	if recent == 0 {
		recent = -1
	}
	return Options{
		Picks:       cfg.Picks,
		PickSize:    cfg.PickSize,
		TopMain:     cfg.TopMain,
		TopSpecial:  cfg.TopSpecial,
		RecentDraws: recent,
		MaxAttempts: cfg.MaxAttempts,
	}
}

func (o Options) withDefaults() Options {
	if o.Picks <= 0 {
		o.Picks = DefaultPicks
	}
	if o.PickSize <= 0 {
		o.PickSize = DefaultPickSize
	}
	if o.TopMain <= 0 {
		o.TopMain = DefaultTopMain
	}
	if o.TopSpecial <= 0 {
		o.TopSpecial = DefaultTopSpecial
	}
	if o.RecentDraws == 0 {
		o.RecentDraws = DefaultRecentDraws
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	return o
}

// Rand is the subset of *rand.Rand the generator draws from.
type Rand interface {
	IntN(n int) int
}

// globalRand uses the package-level math/rand/v2 source, which is safe for concurrent use.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Generator produces pick batches from a history source.
type Generator struct {
	source history.Source
	opts   Options
	rng    Rand
}

// New creates a Generator. A nil rng selects the shared concurrency-safe source;
// pass a seeded *rand.Rand for reproducible output (not safe for concurrent Generate calls).
func New(source history.Source, opts Options, rng Rand) *Generator {
	if rng == nil {
		rng = globalRand{}
	}
	return &Generator{
		source: source,
		opts:   opts.withDefaults(),
		rng:    rng,
	}
}

// Options returns the effective options, defaults applied.
func (g *Generator) Options() Options {
	return g.opts
}

// Pools holds the sampling universe computed for one generation call.
type Pools struct {
	Main    []int
	Special []int
}

// BuildPools ranks the history and applies the recency filter.
func BuildPools(draws []models.DrawRecord, opts Options) Pools {
	opts = opts.withDefaults()
	mainCounts, specialCounts := Counts(draws)

	topMain := Top(Rank(mainCounts), opts.TopMain)
	topSpecial := Top(Rank(specialCounts), opts.TopSpecial)

	return Pools{
		Main:    Exclude(topMain, RecentNumbers(draws, opts.RecentDraws)),
		Special: topSpecial,
	}
}

// Generate loads the history and returns a batch of Options.Picks picks.
//
// Errors are *history.DataLoadError when the history cannot be read and
// *InsufficientCandidatesError when the pools cannot yield a full batch.
func (g *Generator) Generate(ctx context.Context) (*models.Batch, error) {
	start := time.Now()

	res, err := g.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if res.Dropped > 0 {
		logger.Warn("Dropped %d malformed cells from draw history", res.Dropped)
	}

	pools := BuildPools(res.Draws, g.opts)
	logger.Debug("Candidate pools built from %d draws: main=%v special=%v", len(res.Draws), pools.Main, pools.Special)

	picks, err := g.sample(ctx, pools)
	if err != nil {
		return nil, err
	}

	batch := &models.Batch{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now(),
		Picks:       picks,
		Draws:       len(res.Draws),
	}
	if err := batch.Validate(g.opts.Picks, g.opts.PickSize); err != nil {
		return nil, fmt.Errorf("generated batch %s is invalid: %w", batch.ID, err)
	}
	logger.Info("Generated batch %s with %d picks in %v", batch.ID, len(picks), time.Since(start))
	return batch, nil
}

func (g *Generator) sample(ctx context.Context, pools Pools) ([]models.Pick, error) {
	size := g.opts.PickSize
	if len(pools.Main) < size {
		return nil, &InsufficientCandidatesError{Domain: DomainMain, Candidates: len(pools.Main), Required: size}
	}
	if len(pools.Special) == 0 {
		return nil, &InsufficientCandidatesError{Domain: DomainSpecial, Candidates: 0, Required: 1}
	}

	picks := make([]models.Pick, 0, g.opts.Picks)
	scratch := make([]int, len(pools.Main))

	for attempt := 1; len(picks) < g.opts.Picks; attempt++ {
		if attempt > g.opts.MaxAttempts {
			return nil, &InsufficientCandidatesError{
				Domain:     DomainMain,
				Candidates: len(pools.Main),
				Required:   size,
				Attempts:   g.opts.MaxAttempts,
			}
		}
		if attempt%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("pick sampling interrupted: %w", err)
			}
		}

		numbers := g.sampleDistinct(pools.Main, scratch, size)
		slices.Sort(numbers)
		if HasConsecutive(numbers) {
			continue
		}

		picks = append(picks, models.Pick{
			Numbers: numbers,
			Special: pools.Special[g.rng.IntN(len(pools.Special))],
		})
	}

	return picks, nil
}

// sampleDistinct draws k distinct values from pool with a partial Fisher-Yates
// shuffle over scratch. The returned slice is freshly allocated.
func (g *Generator) sampleDistinct(pool, scratch []int, k int) []int {
	copy(scratch, pool)
	for i := 0; i < k; i++ {
		j := i + g.rng.IntN(len(scratch)-i)
		scratch[i], scratch[j] = scratch[j], scratch[i]
	}
	return slices.Clone(scratch[:k])
}
