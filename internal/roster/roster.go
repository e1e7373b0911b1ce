// Package roster maintains the persisted set of users currently at home.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"placewatch/presence-server/internal/model"
	"placewatch/presence-server/internal/observability"
)

// State keys used in the backing store.
const (
	KeyPersonsAtHome = "personsAtHome"
	KeyNumberAtHome  = "numberAtHome"
	KeyAnybodyAtHome = "anybodyAtHome"
)

// StateStore is the key/value persistence the roster reads and writes.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, key, value string) error
}

// Roster tracks which users are at home. All read-modify-write cycles are
// serialized through a mutex so concurrent pipeline runs for different
// users cannot interleave between the read and the write.
type Roster struct {
	mu     sync.Mutex
	store  StateStore
	logger *slog.Logger
}

// New constructs a roster over the given store.
func New(store StateStore, logger *slog.Logger) *Roster {
	return &Roster{store: store, logger: logger}
}

// Update reconciles the roster with the outcome of one pipeline run:
// append when a user is newly home, remove (preserving order) when newly
// away, no write when already consistent.
func (r *Roster) Update(ctx context.Context, user string, atHome bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	persons := r.read(ctx)

	idx := -1
	for i, p := range persons {
		if p == user {
			idx = i
			break
		}
	}

	switch {
	case idx < 0 && atHome:
		persons = append(persons, user)
		r.logger.Debug("added person at home", "user", user)
	case idx >= 0 && !atHome:
		persons = append(persons[:idx], persons[idx+1:]...)
		r.logger.Debug("removed person from home", "user", user)
	default:
		return nil
	}

	return r.write(ctx, persons)
}

// Clear resets the roster to empty.
func (r *Roster) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write(ctx, []string{})
}

// Replace overwrites the roster with an externally supplied membership
// list and recomputes the derived scalars from it.
func (r *Roster) Replace(ctx context.Context, persons []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if persons == nil {
		persons = []string{}
	}
	return r.write(ctx, persons)
}

// Snapshot returns the current roster and its derived scalars.
func (r *Roster) Snapshot(ctx context.Context) (model.HomeStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	persons := r.read(ctx)
	return model.HomeStatus{
		PersonsAtHome: persons,
		NumberAtHome:  len(persons),
		AnybodyAtHome: len(persons) > 0,
	}, nil
}

// read loads the persisted membership list. Unreadable or corrupt state is
// treated as an empty roster rather than an error.
func (r *Roster) read(ctx context.Context) []string {
	raw, ok, err := r.store.GetState(ctx, KeyPersonsAtHome)
	if err != nil {
		r.logger.Error("failed to read roster, treating as empty", "error", err)
		return []string{}
	}
	if !ok || raw == "" {
		return []string{}
	}

	var persons []string
	if err := json.Unmarshal([]byte(raw), &persons); err != nil {
		r.logger.Warn("corrupt roster state, treating as empty", "error", err)
		return []string{}
	}
	if persons == nil {
		persons = []string{}
	}
	return persons
}

func (r *Roster) write(ctx context.Context, persons []string) error {
	encoded, err := json.Marshal(persons)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}

	if err := r.store.SetState(ctx, KeyPersonsAtHome, string(encoded)); err != nil {
		return fmt.Errorf("persist roster: %w", err)
	}
	if err := r.store.SetState(ctx, KeyNumberAtHome, strconv.Itoa(len(persons))); err != nil {
		return fmt.Errorf("persist roster size: %w", err)
	}
	if err := r.store.SetState(ctx, KeyAnybodyAtHome, strconv.FormatBool(len(persons) > 0)); err != nil {
		return fmt.Errorf("persist roster flag: %w", err)
	}

	observability.SetNumberAtHome(len(persons))
	return nil
}
