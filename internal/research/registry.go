// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"errors"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/course-engine/pkg/types"
)

// ErrAlreadyRunning is returned when a unit already has an attempt in flight.
var ErrAlreadyRunning = errors.New("research unit already running")

// Registry maps unit keys to their current record and committed dossier.
// Records are replaced whole; a caller holding an earlier record never sees
// it change. Writes carry the attempt id they belong to, and writes from an
// attempt that is no longer current are ignored.
type Registry struct {
	mu       sync.Mutex
	units    map[string]types.ResearchUnit
	dossiers map[string]types.Dossier
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		units:    make(map[string]types.ResearchUnit),
		dossiers: make(map[string]types.Dossier),
	}
}

// Unit returns the current record for key.
func (r *Registry) Unit(key string) (types.ResearchUnit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[key]
	return u, ok
}

// Dossier returns a copy of the committed dossier for key.
func (r *Registry) Dossier(key string) (types.Dossier, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.dossiers[key]
	if !ok {
		return types.Dossier{}, false
	}
	return d.Clone(), true
}

// Snapshot returns every unit record, ordered by key.
func (r *Registry) Snapshot() []types.ResearchUnit {
	r.mu.Lock()
	out := make([]types.ResearchUnit, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Seed installs a dossier committed in an earlier session, so the unit
// counts as researched.
func (r *Registry) Seed(d types.Dossier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dossiers[d.Key] = d.Clone()
	if _, ok := r.units[d.Key]; !ok {
		r.units[d.Key] = types.ResearchUnit{Key: d.Key, Phase: types.PhaseIdle}
	}
}

// Reset forgets the unit and its dossier. An attempt still in flight for
// the key keeps running but its writes are discarded.
func (r *Registry) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.units, key)
	delete(r.dossiers, key)
}

// pending reports whether key has neither a dossier nor a running attempt.
func (r *Registry) pending(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.dossiers[key]; ok {
		return false
	}
	return !r.units[key].Running
}

// begin starts a new attempt for key and returns its id. The record is
// created on the first attempt; a later attempt starts from a clean record.
func (r *Registry) begin(key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.units[key].Running {
		return "", ErrAlreadyRunning
	}
	id := uuid.NewString()
	r.units[key] = types.ResearchUnit{
		Key:       key,
		AttemptID: id,
		Phase:     types.PhaseIdle,
		Running:   true,
	}
	return id, nil
}

// current returns the record for key as written by attemptID, or a
// blank record when the attempt has been superseded.
func (r *Registry) current(key, attemptID string) types.ResearchUnit {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.units[key]
	if u.AttemptID != attemptID {
		return types.ResearchUnit{Key: key}
	}
	return u
}

// apply replaces the record for key with fn(record) when attemptID is
// still current. It returns the record now stored and whether the write
// was accepted.
func (r *Registry) apply(key, attemptID string, fn func(types.ResearchUnit) types.ResearchUnit) (types.ResearchUnit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[key]
	if !ok || u.AttemptID != attemptID {
		return u, false
	}
	u = fn(u)
	r.units[key] = u
	return u, true
}

// commit stores d as the unit's dossier and settles the attempt.
func (r *Registry) commit(key, attemptID string, d types.Dossier, lastError string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.units[key]
	if !ok || u.AttemptID != attemptID {
		return false
	}
	r.dossiers[key] = d.Clone()
	u = finish(u, lastError)
	u.Validation = d.Validation
	r.units[key] = u
	return true
}

// settle ends the attempt without a dossier.
func (r *Registry) settle(key, attemptID, lastError string) bool {
	_, ok := r.apply(key, attemptID, func(u types.ResearchUnit) types.ResearchUnit {
		return finish(u, lastError)
	})
	return ok
}

// cloneUnit copies the record's slices so the result can be changed
// without touching the original.
func cloneUnit(u types.ResearchUnit) types.ResearchUnit {
	u.QueriesIssued = slices.Clone(u.QueriesIssued)
	u.ResultsCollected = slices.Clone(u.ResultsCollected)
	if u.LatestResult != nil {
		r := *u.LatestResult
		u.LatestResult = &r
	}
	if u.Validation != nil {
		v := *u.Validation
		u.Validation = &v
	}
	return u
}
