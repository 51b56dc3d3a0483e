package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// configFile mirrors the on-disk weight/catalog configuration.
type configFile struct {
	Status       map[string]int `json:"status"`
	Games        map[string]int `json:"games"`
	CustomStatus map[string]int `json:"custom_status"`
	UpdateStatus bool           `json:"update_status"`
	VisualStudio Editor         `json:"visual_studio"`
}

// Load reads the weight tables, track catalog and phrase list from disk and
// returns a validated Catalog.
func Load(configPath, tracksPath, phrasesPath string) (*Catalog, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read catalog config: %w", err)
	}

	var cf configFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse catalog config: %w", err)
	}

	tracks, err := loadTracks(tracksPath)
	if err != nil {
		return nil, err
	}

	phrases, err := loadLines(phrasesPath)
	if err != nil {
		return nil, fmt.Errorf("read phrase list: %w", err)
	}

	cat := &Catalog{
		StatusWeights:       cf.Status,
		GameWeights:         cf.Games,
		CustomStatusWeights: cf.CustomStatus,
		UpdateStatus:        cf.UpdateStatus,
		Editor:              cf.VisualStudio,
		Tracks:              tracks,
		Phrases:             phrases,
	}

	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}

	return cat, nil
}

func loadTracks(path string) ([]Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read track catalog: %w", err)
	}

	var tracks []Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		return nil, fmt.Errorf("parse track catalog: %w", err)
	}

	return tracks, nil
}

// minTokenLength filters out truncated or malformed credential lines.
const minTokenLength = 51

// LoadTokens reads one credential per line, normalizes each (anything after
// the first ':' is dropped) and skips entries too short to be a real token.
// It returns the accepted tokens and the number of skipped lines.
func LoadTokens(path string) (tokens []string, skipped int, err error) {
	lines, err := loadLines(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read token list: %w", err)
	}

	for _, line := range lines {
		token, _, _ := strings.Cut(line, ":")
		if len(token) < minTokenLength {
			skipped++
			continue
		}
		tokens = append(tokens, token)
	}

	return tokens, skipped, nil
}

// loadLines reads non-empty trimmed lines from a text file.
func loadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	return lines, scanner.Err()
}
