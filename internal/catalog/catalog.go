package catalog

import (
	"fmt"
	"strings"
)

// Status kinds drawn from the status weight table.
const (
	StatusPlaying = "playing"
	StatusSpotify = "spotify"
	StatusEditor  = "visual_studio"
)

// Affirmative option in the custom-status weight table.
const CustomStatusYes = "yes"

// Track is one entry in the music catalog.
type Track struct {
	Name    string   `json:"name"`
	Artists []Artist `json:"artists"`
	Images  []Image  `json:"images"`
}

// Artist identifies a track artist.
type Artist struct {
	Name string `json:"name"`
}

// Image holds an asset URL for a track.
type Image struct {
	URL string `json:"url"`
}

// Editor holds the editor-presence catalogs.
type Editor struct {
	Workspaces []string          `json:"workspaces"`
	Filenames  []string          `json:"names"`
	Images     map[string]string `json:"images"` // filename extension → image asset ID
}

// Catalog is the immutable data set shared by every session. It is loaded
// once at startup and read-only afterwards, so concurrent reads need no
// locking.
type Catalog struct {
	StatusWeights       map[string]int
	GameWeights         map[string]int
	CustomStatusWeights map[string]int
	UpdateStatus        bool
	Editor              Editor
	Tracks              []Track
	Phrases             []string
}

// Validate checks that every branch reachable under the configured weights
// has the data it needs. Structural defects surface here, before any session
// starts, rather than mid-connection.
func (c *Catalog) Validate() error {
	if !hasPositiveWeight(c.StatusWeights) {
		return fmt.Errorf("status weights: no option with positive weight")
	}

	if c.StatusWeights[StatusPlaying] > 0 && !hasPositiveWeight(c.GameWeights) {
		return fmt.Errorf("game weights: no option with positive weight")
	}

	if c.StatusWeights[StatusSpotify] > 0 {
		if len(c.Tracks) == 0 {
			return fmt.Errorf("track catalog is empty")
		}
		for i, tr := range c.Tracks {
			if tr.Name == "" {
				return fmt.Errorf("track %d: missing name", i)
			}
			if len(tr.Artists) == 0 || tr.Artists[0].Name == "" {
				return fmt.Errorf("track %d (%s): missing artist", i, tr.Name)
			}
			if len(tr.Images) == 0 || tr.Images[0].URL == "" {
				return fmt.Errorf("track %d (%s): missing image url", i, tr.Name)
			}
		}
	}

	if c.StatusWeights[StatusEditor] > 0 {
		if len(c.Editor.Workspaces) == 0 {
			return fmt.Errorf("editor workspaces catalog is empty")
		}
		if len(c.Editor.Filenames) == 0 {
			return fmt.Errorf("editor filenames catalog is empty")
		}
		for _, name := range c.Editor.Filenames {
			ext := Extension(name)
			if ext == "" {
				return fmt.Errorf("editor filename %q has no extension", name)
			}
			if _, ok := c.Editor.Images[ext]; !ok {
				return fmt.Errorf("editor filename %q: no image for extension %q", name, ext)
			}
		}
	}

	if c.UpdateStatus {
		if !hasPositiveWeight(c.CustomStatusWeights) {
			return fmt.Errorf("custom status weights: no option with positive weight")
		}
		if c.CustomStatusWeights[CustomStatusYes] > 0 && len(c.Phrases) == 0 {
			return fmt.Errorf("custom status phrase list is empty")
		}
	}

	return nil
}

// Extension returns the image-index key for a filename: the segment after
// the first dot ("main.go" → "go", "archive.tar.gz" → "tar"). Empty when the
// name has no extension.
func Extension(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func hasPositiveWeight(table map[string]int) bool {
	for _, w := range table {
		if w > 0 {
			return true
		}
	}
	return false
}
