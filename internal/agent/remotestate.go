package agent

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/joelikeyan/Open-world-game/internal/models"
)

// DefaultInterpolationWindow is the span over which position changes are
// rendered as a smooth blend instead of a discrete jump.
const DefaultInterpolationWindow = 100 * time.Millisecond

// Orientation is a remote entity's facing. Presence payloads may omit it
// entirely, which the conflict resolver treats as "keep what we had".
type Orientation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch,omitempty"`
	Roll  float64 `json:"roll,omitempty"`
}

// RemoteState is the reconciled view of one remote player.
type RemoteState struct {
	Position    *models.Vec3 `json:"position,omitempty"`
	Orientation *Orientation `json:"orientation,omitempty"`
	Animation   string       `json:"animation,omitempty"`
	View        models.View  `json:"view,omitempty"`
}

type remoteEntry struct {
	last      RemoteState
	target    RemoteState
	updatedAt time.Time
}

// Tracker holds the per-remote-player reconciliation records and serves
// interpolation queries. Updates from the local player are discarded.
type Tracker struct {
	mu      sync.Mutex
	localID string
	window  time.Duration
	entries map[string]*remoteEntry
	now     func() time.Time
}

func NewTracker(localID string, window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultInterpolationWindow
	}
	return &Tracker{
		localID: localID,
		window:  window,
		entries: make(map[string]*remoteEntry),
		now:     time.Now,
	}
}

// Track folds an incoming presence event into the record for its player.
// The previous target becomes the new last, and the new target is the
// conflict-resolved merge of the previous target with the incoming state.
func (t *Tracker) Track(event models.Event) {
	if event.PlayerID == "" || event.PlayerID == t.localID {
		return
	}

	var incoming RemoteState
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &incoming); err != nil {
			return
		}
	}
	incoming.View = event.View

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[event.PlayerID]
	if !ok {
		t.entries[event.PlayerID] = &remoteEntry{
			last:      incoming,
			target:    incoming,
			updatedAt: t.now(),
		}
		return
	}

	previous := entry.target
	entry.last = previous
	entry.target = resolveConflict(&previous, incoming)
	entry.updatedAt = t.now()
}

// resolveConflict merges a newly received state with the previously known
// one, keyed on the (existing view, incoming view) pair. First-person
// updates are orientation-authoritative; third-person updates are
// position-authoritative.
func resolveConflict(existing *RemoteState, incoming RemoteState) RemoteState {
	if existing == nil {
		return incoming
	}

	type viewPair struct{ existing, incoming models.View }
	switch (viewPair{existing.View, incoming.View}) {
	case viewPair{models.ViewFirstPerson, models.ViewFirstPerson},
		viewPair{models.ViewThirdPerson, models.ViewThirdPerson}:
		// Same view: last writer wins outright.
		return incoming

	case viewPair{models.ViewThirdPerson, models.ViewFirstPerson}:
		// Switch into first-person: take everything incoming, but fall back
		// to the known orientation when the update omits one.
		merged := incoming
		if merged.Orientation == nil {
			merged.Orientation = existing.Orientation
		}
		return merged

	case viewPair{models.ViewFirstPerson, models.ViewThirdPerson}:
		// Switch into third-person: position and view change together, the
		// incoming orientation is dropped.
		merged := *existing
		if incoming.Position != nil {
			merged.Position = incoming.Position
		}
		merged.View = incoming.View
		return merged

	default:
		return incoming
	}
}

// InterpolatedState blends the tracked position between last and target
// based on how far into the interpolation window the given time falls.
// Non-position fields come from target unblended. The second return is
// false when the player is not tracked.
func (t *Tracker) InterpolatedState(playerID string, now time.Time) (RemoteState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.entries[playerID]
	if !ok {
		return RemoteState{}, false
	}
	if entry.last.Position == nil || entry.target.Position == nil {
		return entry.target, true
	}

	elapsed := float64(now.Sub(entry.updatedAt)) / float64(t.window)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > 1 {
		elapsed = 1
	}

	lerp := func(a, b float64) float64 { return a + (b-a)*elapsed }
	state := entry.target
	state.Position = &models.Vec3{
		X: lerp(entry.last.Position.X, entry.target.Position.X),
		Y: lerp(entry.last.Position.Y, entry.target.Position.Y),
		Z: lerp(entry.last.Position.Z, entry.target.Position.Z),
	}
	return state, true
}

// Evict drops the record for a player, typically after an observed leave.
func (t *Tracker) Evict(playerID string) {
	t.mu.Lock()
	delete(t.entries, playerID)
	t.mu.Unlock()
}

// PruneStale drops records that have not been updated within maxAge and
// returns how many were removed.
func (t *Tracker) PruneStale(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-maxAge)
	pruned := 0
	for id, entry := range t.entries {
		if entry.updatedAt.Before(cutoff) {
			delete(t.entries, id)
			pruned++
		}
	}
	return pruned
}

// Tracked reports how many remote players currently have records.
func (t *Tracker) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
