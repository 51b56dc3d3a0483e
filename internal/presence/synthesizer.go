package presence

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/cloudnine-labs/presence/internal/catalog"
	"github.com/cloudnine-labs/presence/internal/weighted"
)

// ErrEmptyCatalog indicates a branch was selected whose backing catalog has
// no entries. This is a setup defect, not a transient condition, and is
// never retried.
var ErrEmptyCatalog = errors.New("required catalog is empty")

// Protocol constants. The nonce encoding and the editor application assets
// are fixed by the remote service, not tunables.
const (
	nonceEpochMillis = 1420070400000
	nonceScale       = 4194304 // 1 << 22

	trackImagePrefix = "https://i.scdn.co/image/"

	editorName       = "Visual Studio Code"
	editorAppID      = "383226320970055681"
	editorSmallImage = "565945770067623946"
)

// Synthetic timestamp bounds, in milliseconds.
const (
	minPastOffset = 100_000
	maxPastOffset = 10_000_000
	minPlayFor    = 100_000
	maxPlayFor    = 300_000
)

var statusLabels = []string{"online", "dnd", "idle"}

// Synthesizer builds presence-update payloads from the shared catalog. It is
// not safe for concurrent use; each session owns its own instance (the
// catalog itself is read-only and shared).
type Synthesizer struct {
	cat *catalog.Catalog
	rng *rand.Rand
	now func() time.Time
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithClock overrides the wall-clock source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Synthesizer) {
		s.now = now
	}
}

// New creates a Synthesizer drawing randomness from rng.
func New(cat *catalog.Catalog, rng *rand.Rand, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		cat: cat,
		rng: rng,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Build synthesizes one presence-update payload: a weighted status kind, the
// matching primary activity, an optional custom-status entry, and a uniform
// online-state label.
func (s *Synthesizer) Build() (*Payload, error) {
	kind, err := weighted.Pick(s.rng, s.cat.StatusWeights)
	if err != nil {
		return nil, fmt.Errorf("status kind: %w", err)
	}

	var activities []Activity

	switch kind {
	case catalog.StatusPlaying:
		act, err := s.gameActivity()
		if err != nil {
			return nil, err
		}
		activities = append(activities, act)

	case catalog.StatusSpotify:
		act, err := s.listeningActivity()
		if err != nil {
			return nil, err
		}
		activities = append(activities, act)

	case catalog.StatusEditor:
		act, err := s.editorActivity()
		if err != nil {
			return nil, err
		}
		activities = append(activities, act)
	}

	if s.cat.UpdateStatus {
		custom, ok, err := s.customStatusActivity()
		if err != nil {
			return nil, err
		}
		if ok {
			activities = append(activities, custom)
		}
	}

	return &Payload{
		Kind: kind,
		Frame: UpdateFrame{
			Op: 3,
			Data: Update{
				Since:      0,
				Activities: activities,
				Status:     statusLabels[s.rng.Intn(len(statusLabels))],
				AFK:        false,
			},
		},
	}, nil
}

func (s *Synthesizer) gameActivity() (Activity, error) {
	game, err := weighted.Pick(s.rng, s.cat.GameWeights)
	if err != nil {
		return Activity{}, fmt.Errorf("game: %w", err)
	}

	return Activity{
		Type:       activityGame,
		Name:       game,
		Timestamps: &Timestamps{Start: s.pastMillis()},
	}, nil
}

func (s *Synthesizer) listeningActivity() (Activity, error) {
	if len(s.cat.Tracks) == 0 {
		return Activity{}, fmt.Errorf("tracks: %w", ErrEmptyCatalog)
	}
	track := s.cat.Tracks[s.rng.Intn(len(s.cat.Tracks))]
	if len(track.Artists) == 0 || len(track.Images) == 0 {
		return Activity{}, fmt.Errorf("track %q: %w", track.Name, ErrEmptyCatalog)
	}

	now := s.nowMillis()
	playFor := int64(minPlayFor + s.rng.Intn(maxPlayFor-minPlayFor+1))

	return Activity{
		ID:      "spotify:1",
		Type:    activityListening,
		Flags:   listeningFlags,
		Name:    "Spotify",
		State:   track.Artists[0].Name,
		Details: track.Name,
		Timestamps: &Timestamps{
			Start: now,
			End:   now + playFor,
		},
		Party:  &Party{ID: "spotify:" + s.Nonce()},
		Assets: &Assets{LargeImage: "spotify:" + trackImageRef(track.Images[0].URL)},
	}, nil
}

func (s *Synthesizer) editorActivity() (Activity, error) {
	if len(s.cat.Editor.Workspaces) == 0 || len(s.cat.Editor.Filenames) == 0 {
		return Activity{}, fmt.Errorf("editor catalogs: %w", ErrEmptyCatalog)
	}

	workspace := s.cat.Editor.Workspaces[s.rng.Intn(len(s.cat.Editor.Workspaces))]
	filename := s.cat.Editor.Filenames[s.rng.Intn(len(s.cat.Editor.Filenames))]

	image, ok := s.cat.Editor.Images[catalog.Extension(filename)]
	if !ok {
		return Activity{}, fmt.Errorf("editor image for %q: %w", filename, ErrEmptyCatalog)
	}

	return Activity{
		Type:          activityGame,
		Name:          editorName,
		State:         "Workspace: " + workspace,
		Details:       "Editing " + filename,
		ApplicationID: editorAppID,
		Timestamps:    &Timestamps{Start: s.pastMillis()},
		Assets: &Assets{
			SmallText:  editorName,
			SmallImage: editorSmallImage,
			LargeImage: image,
		},
	}, nil
}

func (s *Synthesizer) customStatusActivity() (Activity, bool, error) {
	choice, err := weighted.Pick(s.rng, s.cat.CustomStatusWeights)
	if err != nil {
		return Activity{}, false, fmt.Errorf("custom status: %w", err)
	}
	if choice != catalog.CustomStatusYes {
		return Activity{}, false, nil
	}

	if len(s.cat.Phrases) == 0 {
		return Activity{}, false, fmt.Errorf("phrases: %w", ErrEmptyCatalog)
	}
	phrase := s.cat.Phrases[s.rng.Intn(len(s.cat.Phrases))]

	return Activity{
		ID:    "custom",
		Type:  activityCustom,
		Name:  "Custom Status",
		State: phrase,
		Emoji: &Emoji{ID: nil, Name: "😃", Animated: false},
	}, true, nil
}

// Nonce returns a value that strictly increases with wall-clock time,
// encoded the way the gateway expects (milliseconds past the service epoch,
// shifted into the high bits).
func (s *Synthesizer) Nonce() string {
	return strconv.FormatInt((s.nowMillis()-nonceEpochMillis)*nonceScale, 10)
}

func (s *Synthesizer) nowMillis() int64 {
	return s.now().UnixMilli()
}

// pastMillis returns a start timestamp a random 100s–10,000s in the past.
func (s *Synthesizer) pastMillis() int64 {
	return s.nowMillis() - int64(minPastOffset+s.rng.Intn(maxPastOffset-minPastOffset+1))
}

// trackImageRef extracts the asset reference from a track image URL: the
// path after the catalog's base prefix, falling back to the last path
// segment for URLs from other hosts.
func trackImageRef(url string) string {
	if ref, ok := strings.CutPrefix(url, trackImagePrefix); ok {
		return ref
	}
	if i := strings.LastIndexByte(url, '/'); i >= 0 {
		return url[i+1:]
	}
	return url
}
