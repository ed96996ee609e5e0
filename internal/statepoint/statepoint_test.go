package statepoint_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signalnine/sweep/internal/statepoint"
)

func sampleGrid() statepoint.Grid {
	return statepoint.Grid{
		NumEpochs:    []int{1, 5},
		BatchSize:    []int{128},
		HiddenSize:   []int{64},
		LearningRate: []float64{2e-4},
		DropoutProb:  []float64{0.1, 0.5},
		FGSMEpsilon:  []float64{0.05},
		Seed:         []int{1, 2},
	}
}

func TestExpandOrder(t *testing.T) {
	got := sampleGrid().Expand()
	if len(got) != 8 {
		t.Fatalf("expected 8 statepoints, got %d", len(got))
	}
	want := []statepoint.Statepoint{
		{NumEpochs: 1, BatchSize: 128, HiddenSize: 64, LearningRate: 2e-4, DropoutProb: 0.1, FGSMEpsilon: 0.05, Seed: 1},
		{NumEpochs: 1, BatchSize: 128, HiddenSize: 64, LearningRate: 2e-4, DropoutProb: 0.1, FGSMEpsilon: 0.05, Seed: 2},
		{NumEpochs: 1, BatchSize: 128, HiddenSize: 64, LearningRate: 2e-4, DropoutProb: 0.5, FGSMEpsilon: 0.05, Seed: 1},
	}
	if diff := cmp.Diff(want, got[:3]); diff != "" {
		t.Errorf("Expand() mismatch (-want +got):\n%s", diff)
	}
	if got[7].NumEpochs != 5 || got[7].Seed != 2 {
		t.Errorf("last statepoint: got %+v", got[7])
	}
}

func TestGridValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *statepoint.Grid)
		wantErr bool
	}{
		{"valid", func(g *statepoint.Grid) {}, false},
		{"empty seeds", func(g *statepoint.Grid) { g.Seed = nil }, true},
		{"empty epochs", func(g *statepoint.Grid) { g.NumEpochs = []int{} }, true},
		{"duplicate seed", func(g *statepoint.Grid) { g.Seed = []int{1, 1} }, true},
		{"zero batch", func(g *statepoint.Grid) { g.BatchSize = []int{0} }, true},
		{"dropout of one", func(g *statepoint.Grid) { g.DropoutProb = []float64{1} }, true},
		{"negative epsilon", func(g *statepoint.Grid) { g.FGSMEpsilon = []float64{-0.1} }, true},
		{"zero learning rate", func(g *statepoint.Grid) { g.LearningRate = []float64{0} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := sampleGrid()
			tt.mutate(&g)
			err := g.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIDDeterministic(t *testing.T) {
	a := statepoint.Statepoint{NumEpochs: 1, BatchSize: 128, HiddenSize: 64, LearningRate: 2e-4, DropoutProb: 0.1, FGSMEpsilon: 0.05, Seed: 1}
	b := a
	if a.ID() != b.ID() {
		t.Errorf("equal statepoints produced different IDs")
	}
	if len(a.ID()) != 32 {
		t.Errorf("ID length: got %d, want 32", len(a.ID()))
	}
	b.Seed = 2
	if a.ID() == b.ID() {
		t.Errorf("different seeds produced the same ID")
	}
	if a.Key() != b.Key() {
		t.Errorf("keys differ for statepoints that only differ by seed")
	}
}

func TestValues(t *testing.T) {
	sp := statepoint.Statepoint{NumEpochs: 5, BatchSize: 128, HiddenSize: 64, LearningRate: 2e-4, DropoutProb: 0.5, FGSMEpsilon: 0.05, Seed: 3}
	want := []string{"5", "128", "64", "0.0002", "0.5", "0.05"}
	if diff := cmp.Diff(want, sp.Values()); diff != "" {
		t.Errorf("Values() mismatch (-want +got):\n%s", diff)
	}
	if len(statepoint.Columns) != len(want) {
		t.Errorf("Columns length: got %d, want %d", len(statepoint.Columns), len(want))
	}
}

func TestLess(t *testing.T) {
	a := statepoint.Statepoint{NumEpochs: 1, Seed: 2}
	b := statepoint.Statepoint{NumEpochs: 5, Seed: 1}
	if !statepoint.Less(a, b) || statepoint.Less(b, a) {
		t.Error("expected ordering by num_epochs before seed")
	}
	c := statepoint.Statepoint{NumEpochs: 1, Seed: 3}
	if !statepoint.Less(a, c) {
		t.Error("expected ordering by seed when other fields match")
	}
}
