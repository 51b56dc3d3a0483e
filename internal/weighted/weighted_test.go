package weighted

import (
	"errors"
	"math/rand"
	"testing"
)

func TestPick_SingleOption(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	table := map[string]int{"only": 1}

	for i := 0; i < 100; i++ {
		got, err := Pick(rng, table)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		if got != "only" {
			t.Fatalf("Pick = %q, want %q", got, "only")
		}
	}
}

func TestPick_InvalidTables(t *testing.T) {
	tests := []struct {
		name  string
		table map[string]int
	}{
		{name: "empty", table: map[string]int{}},
		{name: "nil", table: nil},
		{name: "all zero", table: map[string]int{"a": 0, "b": 0}},
		{name: "all negative", table: map[string]int{"a": -5, "b": -1}},
	}

	rng := rand.New(rand.NewSource(1))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Pick(rng, tt.table)
			if !errors.Is(err, ErrInvalidWeights) {
				t.Errorf("Pick error = %v, want ErrInvalidWeights", err)
			}
		})
	}
}

func TestPick_SkipsNonPositiveWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	table := map[string]int{"never": 0, "also never": -10, "always": 3}

	for i := 0; i < 1000; i++ {
		got, err := Pick(rng, table)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		if got != "always" {
			t.Fatalf("Pick = %q, want %q", got, "always")
		}
	}
}

func TestPick_ProportionalFrequency(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	table := map[string]int{"idle": 25, "music": 75}

	const draws = 10000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		got, err := Pick(rng, table)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		counts[got]++
	}

	musicFrac := float64(counts["music"]) / draws
	if musicFrac < 0.70 || musicFrac > 0.80 {
		t.Errorf("music fraction = %.3f, want within [0.70, 0.80]", musicFrac)
	}
	if counts["idle"]+counts["music"] != draws {
		t.Errorf("draws returned unknown options: %v", counts)
	}
}

func TestPick_ThreeWaySplit(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	table := map[string]int{"a": 10, "b": 10, "c": 20}

	const draws = 20000
	counts := make(map[string]int)
	for i := 0; i < draws; i++ {
		got, err := Pick(rng, table)
		if err != nil {
			t.Fatalf("Pick failed: %v", err)
		}
		counts[got]++
	}

	wants := map[string]float64{"a": 0.25, "b": 0.25, "c": 0.50}
	for k, want := range wants {
		frac := float64(counts[k]) / draws
		if frac < want-0.03 || frac > want+0.03 {
			t.Errorf("option %q fraction = %.3f, want %.2f ± 0.03", k, frac, want)
		}
	}
}

func TestPick_IntKeys(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	table := map[int]int{7: 1}

	got, err := Pick(rng, table)
	if err != nil {
		t.Fatalf("Pick failed: %v", err)
	}
	if got != 7 {
		t.Errorf("Pick = %d, want 7", got)
	}
}
