package theme

import (
	"strings"

	"github.com/go-faster/errors"
)

// ID identifies one of the registered theme presets.
type ID string

const (
	Minimal   ID = "theme1"
	Dark      ID = "theme2"
	Pixelated ID = "theme3"

	// DefaultID is adopted whenever no valid selection has been persisted.
	DefaultID = Minimal
)

// Colors defines the semantic color slots every page reads from.
//
// Values are opaque CSS color strings; they are not validated.
type Colors struct {
	Primary       string `json:"primary"`
	Secondary     string `json:"secondary"`
	Background    string `json:"background"`
	Surface       string `json:"surface"`
	TextPrimary   string `json:"textPrimary"`
	TextSecondary string `json:"textSecondary"`
	Border        string `json:"border"`
}

// Fonts holds the font family references used by headings and body text.
type Fonts struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Layout holds the structural flags of a theme.
type Layout struct {
	// HasSidebar selects the persistent sidebar instead of the top navigation.
	HasSidebar bool   `json:"hasSidebar"`
	CardLayout string `json:"cardLayout"`
}

// Config is a complete, immutable theme preset.
type Config struct {
	Name        ID     `json:"name"`
	DisplayName string `json:"displayName"`
	Colors      Colors `json:"colors"`
	Fonts       Fonts  `json:"fonts"`
	Layout      Layout `json:"layout"`
	Transition  string `json:"transition"`
}

// ErrUnknownTheme is returned when a requested identifier is not registered.
var ErrUnknownTheme = errors.New("unknown theme")

var registry = map[ID]Config{
	Minimal: {
		Name:        Minimal,
		DisplayName: "Minimal",
		Colors: Colors{
			Primary:       "#2563eb",
			Secondary:     "#1d4ed8",
			Background:    "#ffffff",
			Surface:       "#f9fafb",
			TextPrimary:   "#111827",
			TextSecondary: "#111845",
			Border:        "#e5e7eb",
		},
		Fonts:      Fonts{Primary: "'Mozilla Text', sans-serif", Secondary: "'Inter', sans-serif"},
		Layout:     Layout{HasSidebar: false, CardLayout: "card card--minimal"},
		Transition: "all 0.4s ease-in-out",
	},
	Dark: {
		Name:        Dark,
		DisplayName: "Dark",
		Colors: Colors{
			Primary:       "#2563eb",
			Secondary:     "#3b82f6",
			Background:    "#121212",
			Surface:       "#1e1e1e",
			TextPrimary:   "#f3f4f6",
			TextSecondary: "#f3f4e4",
			Border:        "#2e2e2e",
		},
		Fonts:      Fonts{Primary: "'Roboto Slab', serif", Secondary: "'Inter', sans-serif"},
		Layout:     Layout{HasSidebar: true, CardLayout: "card card--dark"},
		Transition: "all 0.4s cubic-bezier(0.4, 0, 0.2, 1)",
	},
	Pixelated: {
		Name:        Pixelated,
		DisplayName: "Pixelated",
		Colors: Colors{
			Primary:       "#ff6b6b",
			Secondary:     "#0f172f",
			Background:    "#1efae4",
			Surface:       "#0f172a",
			TextPrimary:   "#1efaf4",
			TextSecondary: "#1f152e",
			Border:        "#ff6b65",
		},
		Fonts:      Fonts{Primary: "'Bitcount Grid Double', monospace", Secondary: "'Inter', sans-serif"},
		Layout:     Layout{HasSidebar: false, CardLayout: "card card--pixelated rainbow"},
		Transition: "all 0.4s cubic-bezier(0.4, 0, 0.2, 1)",
	},
}

var ids = [...]ID{Minimal, Dark, Pixelated}

// Get returns the configuration registered for id.
func Get(id ID) (Config, error) {
	cfg, ok := registry[id]
	if !ok {
		return Config{}, errors.Wrapf(ErrUnknownTheme, "%q", string(id))
	}
	return cfg, nil
}

// MustGet returns the configuration for a registered id and panics otherwise.
func MustGet(id ID) Config {
	cfg, err := Get(id)
	if err != nil {
		panic(err)
	}
	return cfg
}

// List returns every registered configuration in presentation order.
func List() []Config {
	out := make([]Config, 0, len(ids))
	for _, id := range ids {
		out = append(out, registry[id])
	}
	return out
}

// IDs returns the registered identifiers in presentation order.
func IDs() []ID {
	out := make([]ID, len(ids))
	copy(out, ids[:])
	return out
}

// IsKnown reports whether id is registered.
func IsKnown(id ID) bool {
	_, ok := registry[id]
	return ok
}

// Lookup normalizes free-form input (form values, SSH usernames, CLI args)
// into a registered identifier.
func Lookup(raw string) (ID, bool) {
	id := ID(strings.ToLower(strings.TrimSpace(raw)))
	if !IsKnown(id) {
		return "", false
	}
	return id, true
}

// Next returns the identifier following id in presentation order, wrapping
// around. Unknown ids yield DefaultID.
func Next(id ID) ID {
	for i, candidate := range ids {
		if candidate == id {
			return ids[(i+1)%len(ids)]
		}
	}
	return DefaultID
}
