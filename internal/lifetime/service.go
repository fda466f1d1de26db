// Package lifetime implements the background worker that makes pets hungrier
// and sadder as time passes.
package lifetime

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/rafaeljc/petlife/internal/events"
	"github.com/rafaeljc/petlife/internal/observability"
	"github.com/rafaeljc/petlife/internal/pet"
	"github.com/rafaeljc/petlife/internal/store"
	"github.com/rafaeljc/petlife/internal/validation"
)

// staleAfter is how many periods may pass without a completed tick before
// the readiness check fails.
const staleAfter = 3

// Config holds the configuration for the lifetime service.
type Config struct {
	// Period is the time between ticks and the duration applied by each tick.
	Period time.Duration
}

// Notifier receives one event per decayed pet.
type Notifier interface {
	Notify(e events.Event)
}

// TickResult summarises one pass over the store.
type TickResult struct {
	Decayed int
	Failed  int
}

// Service applies ApplyNotFed and ApplyNotPetted to every stored pet once per period.
type Service struct {
	logger   *slog.Logger
	config   Config
	pets     store.PetRepository
	rules    pet.Rules
	notifier Notifier

	startedAt atomic.Int64 // unix nanos, 0 until Run is called
	lastTick  atomic.Int64 // unix nanos, 0 until the first tick completes
	now       func() time.Time
}

// New creates a lifetime service.
func New(logger *slog.Logger, cfg Config, pets store.PetRepository, rules pet.Rules, notifier Notifier) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	validation.AssertNotNilInterface(pets, "pet repository")
	validation.AssertNotNilInterface(rules, "attribute rules")
	validation.AssertNotNilInterface(notifier, "event notifier")

	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}

	return &Service{
		logger:   logger,
		config:   cfg,
		pets:     pets,
		rules:    rules,
		notifier: notifier,
		now:      time.Now,
	}
}

// Run ticks every period until ctx is cancelled. The first tick happens one
// period after start, never immediately.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("starting lifetime service", slog.Duration("period", s.config.Period))
	s.startedAt.Store(s.now().UnixNano())

	ticker := time.NewTicker(s.config.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("lifetime service stopping...")
			return nil
		case <-ticker.C:
			// A failed tick is logged; the next one retries with fresh state.
			if _, err := s.Tick(ctx); err != nil {
				s.logger.Warn("lifetime tick interrupted", slog.String("error", err.Error()))
			}
		}
	}
}

// Tick applies one period of decay to every pet in a snapshot of the store.
// Per-pet failures are counted and skipped. It returns ctx.Err() if cancelled
// between two pets; pets already written keep their new state.
//
// Each decayed pet is written back with UpsertPet. A write made between the
// snapshot and the write-back is overwritten, and a pet removed in that
// window is re-created with its decayed state (last writer wins).
func (s *Service) Tick(ctx context.Context) (TickResult, error) {
	start := s.now()
	var res TickResult

	snapshot := s.pets.ListAllPets()
	total := 0
	for _, up := range snapshot {
		total += len(up.Pets)
	}
	observability.StoredPets.Set(float64(total))

	for _, up := range snapshot {
		for _, p := range up.Pets {
			if err := ctx.Err(); err != nil {
				return res, err
			}

			decayed, err := s.decay(up.UserName, p)
			if err != nil {
				res.Failed++
				observability.LifetimePetsTotal.WithLabelValues(observability.StatusFailure).Inc()
				s.logger.Warn("failed to decay pet",
					slog.String("user", up.UserName),
					slog.String("pet", p.Name),
					slog.String("error", err.Error()),
				)
				continue
			}

			res.Decayed++
			observability.LifetimePetsTotal.WithLabelValues(observability.StatusSuccess).Inc()
			s.notifier.Notify(events.NewPetEvent(events.PetDecayed, up.UserName, decayed))
		}
	}

	finished := s.now()
	s.lastTick.Store(finished.UnixNano())
	observability.LifetimeLastTick.Set(float64(finished.Unix()))
	observability.LifetimeTickDuration.Observe(finished.Sub(start).Seconds())

	if total > 0 {
		s.logger.Debug("lifetime tick completed",
			slog.Int("decayed", res.Decayed),
			slog.Int("failed", res.Failed),
			slog.Duration("duration", finished.Sub(start)),
		)
	}
	return res, nil
}

// decay works on a copy of p and writes it back. A panic in the rules or the
// store is turned into an error so one pet cannot stop the tick.
func (s *Service) decay(user string, p pet.Pet) (out pet.Pet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while decaying pet: %v", r)
		}
	}()

	if err := p.ApplyNotFed(s.config.Period, s.rules); err != nil {
		return pet.Empty, err
	}
	if err := p.ApplyNotPetted(s.config.Period, s.rules); err != nil {
		return pet.Empty, err
	}
	if err := s.pets.UpsertPet(user, p); err != nil {
		return pet.Empty, err
	}
	return p, nil
}

// LastTick returns when the last tick completed, or the zero time.
func (s *Service) LastTick() time.Time {
	ns := s.lastTick.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Name implements observability.Checker.
func (s *Service) Name() string {
	return "lifetime"
}

// Check implements observability.Checker. The worker is unhealthy when it
// was never started or when no tick completed for staleAfter periods past
// the expected one.
func (s *Service) Check(_ context.Context) error {
	started := s.startedAt.Load()
	if started == 0 {
		return fmt.Errorf("lifetime worker not running")
	}

	reference := time.Unix(0, started).Add(s.config.Period)
	if last := s.LastTick(); !last.IsZero() {
		reference = last
	}

	if lag := s.now().Sub(reference); lag > staleAfter*s.config.Period {
		return fmt.Errorf("no tick completed for %s", lag.Truncate(time.Second))
	}
	return nil
}
