// Package counters mutates the live counter snapshot on behalf of chat and
// HTTP callers. Counts never go below zero, and every applied change is
// announced to the overlay.
package counters

import (
	"context"
	"fmt"

	"github.com/onnwee/stream-tender/backend/gameswitch"
	"github.com/onnwee/stream-tender/backend/models"
)

// ActiveStateStore is the slice of the store the service mutates.
type ActiveStateStore interface {
	GetActiveCounter(ctx context.Context, userID string) (*models.Counter, error)
	IncrementActiveCore(ctx context.Context, userID, name string, delta int) (*models.Counter, error)
	IncrementActiveCustom(ctx context.Context, userID, name string, delta int) (*models.Counter, error)
	GetActiveCustomCounters(ctx context.Context, userID string) (*models.CustomCounterConfig, error)
}

// Notifier publishes counter changes to overlay subscribers.
type Notifier interface {
	NotifyCounterUpdate(userID string, counter *models.Counter)
}

// Service adjusts counters under the same per-user lock as the game switch
// orchestrator, so a bump cannot interleave with an archive/restore cycle.
type Service struct {
	Store      ActiveStateStore
	Notifier   Notifier
	Serializer *gameswitch.UserSerializer
}

// Adjust changes one counter by delta and returns the updated snapshot. Core
// counter names address the built-in counts; any other name must be defined
// in the live game's custom counter config.
func (s *Service) Adjust(ctx context.Context, userID, name string, delta int) (*models.Counter, error) {
	if userID == "" || name == "" {
		return nil, fmt.Errorf("user id and counter name required")
	}
	var (
		c   *models.Counter
		err error
	)
	run := func() { c, err = s.adjust(ctx, userID, name, delta) }
	if s.Serializer != nil {
		s.Serializer.Do(userID, run)
	} else {
		run()
	}
	return c, err
}

func (s *Service) adjust(ctx context.Context, userID, name string, delta int) (*models.Counter, error) {
	var (
		c   *models.Counter
		err error
	)
	if models.IsCoreCounter(name) {
		c, err = s.Store.IncrementActiveCore(ctx, userID, name, delta)
	} else {
		cfg, cfgErr := s.Store.GetActiveCustomCounters(ctx, userID)
		if cfgErr != nil {
			return nil, fmt.Errorf("load custom counters: %w", cfgErr)
		}
		if cfg == nil {
			return nil, fmt.Errorf("no custom counter %q for the live game", name)
		}
		if _, ok := cfg.Counters[name]; !ok {
			return nil, fmt.Errorf("no custom counter %q for the live game", name)
		}
		c, err = s.Store.IncrementActiveCustom(ctx, userID, name, delta)
	}
	if err != nil {
		return nil, err
	}
	if s.Notifier != nil && c != nil {
		s.Notifier.NotifyCounterUpdate(userID, c)
	}
	return c, nil
}

// Snapshot returns the live counter state, empty rather than nil for users
// who have never counted anything.
func (s *Service) Snapshot(ctx context.Context, userID string) (*models.Counter, error) {
	c, err := s.Store.GetActiveCounter(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return models.NewCounter(userID), nil
	}
	return c, nil
}
