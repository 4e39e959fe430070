package theme

import (
	"sync"

	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
)

// PreferenceKey is the durable storage key holding the selected theme.
const PreferenceKey = "storefront.app-theme"

// ErrInvalidThemeSelection is returned by SetCurrent for unregistered ids.
var ErrInvalidThemeSelection = errors.New("invalid theme selection")

// Preferences is the durable key-value storage the store persists into.
//
// Get reports a missing key with any error; the store treats every read
// failure as "nothing persisted".
type Preferences interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Change is delivered to observers after every successful SetCurrent.
type Change struct {
	Previous ID
	Current  ID
	Config   Config
}

// Store holds the process-wide theme selection.
//
// Observers run synchronously inside SetCurrent and must not call SetCurrent
// themselves.
type Store struct {
	prefs Preferences
	log   zerolog.Logger

	// writeMu serializes SetCurrent so persistence and notification follow
	// the same order as state changes.
	writeMu sync.Mutex

	mu        sync.RWMutex
	current   ID
	observers []observer
	nextID    int
}

type observer struct {
	id int
	fn func(Change)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger routes persistence warnings to log.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) { s.log = log }
}

// NewStore builds a store backed by prefs and seeds it from storage.
func NewStore(prefs Preferences, opts ...StoreOption) *Store {
	s := &Store{prefs: prefs, log: zerolog.Nop(), current: DefaultID}
	for _, opt := range opts {
		opt(s)
	}
	s.Initialize()
	return s
}

// Initialize (re)seeds the selection from durable storage. Missing,
// unreadable, or unrecognized values fall back to DefaultID. It never fails.
func (s *Store) Initialize() {
	id := s.load()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
}

func (s *Store) load() ID {
	if s.prefs == nil {
		return DefaultID
	}
	raw, err := s.prefs.Get(PreferenceKey)
	if err != nil {
		s.log.Debug().Str("event", "preference_load_failed").Err(err).Msg("no persisted theme, using default")
		return DefaultID
	}
	id := ID(raw)
	if !IsKnown(id) {
		s.log.Warn().Str("event", "preference_unrecognized").Str("value", raw).Msg("persisted theme is not registered, using default")
		return DefaultID
	}
	return id
}

// Current returns the active identifier and its configuration.
func (s *Store) Current() (ID, Config) {
	s.mu.RLock()
	id := s.current
	s.mu.RUnlock()
	return id, registry[id]
}

// Themes returns every selectable configuration in presentation order.
func (s *Store) Themes() []Config {
	return List()
}

// SetCurrent selects id, persists it, and notifies observers before
// returning. Re-selecting the active theme is not short-circuited: it is
// persisted and observers are notified again.
func (s *Store) SetCurrent(id ID) error {
	cfg, ok := registry[id]
	if !ok {
		return errors.Wrapf(ErrInvalidThemeSelection, "%q", string(id))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	previous := s.current
	s.current = id
	observers := make([]observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	s.persist(id)

	change := Change{Previous: previous, Current: id, Config: cfg}
	for _, o := range observers {
		if s.subscribed(o.id) {
			o.fn(change)
		}
	}
	return nil
}

func (s *Store) persist(id ID) {
	if s.prefs == nil {
		return
	}
	if err := s.prefs.Set(PreferenceKey, string(id)); err != nil {
		s.log.Warn().Str("event", "preference_save_failed").Str("theme", string(id)).Err(err).Msg("theme selection not persisted")
	}
}

// Subscribe registers fn to run after every successful SetCurrent. The
// returned function deregisters it; calling it more than once is harmless.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observer{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) subscribed(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.observers {
		if o.id == id {
			return true
		}
	}
	return false
}
