package statepoint

import "fmt"

// Grid holds the candidate values for each parameter.
type Grid struct {
	NumEpochs    []int     `yaml:"num_epochs"`
	BatchSize    []int     `yaml:"batch_size"`
	HiddenSize   []int     `yaml:"hidden_size"`
	LearningRate []float64 `yaml:"learning_rate"`
	DropoutProb  []float64 `yaml:"dropout_prob"`
	FGSMEpsilon  []float64 `yaml:"fgsm_epsilon"`
	Seed         []int     `yaml:"seed"`
}

func (g Grid) Validate() error {
	lists := []struct {
		name string
		n    int
	}{
		{"num_epochs", len(g.NumEpochs)},
		{"batch_size", len(g.BatchSize)},
		{"hidden_size", len(g.HiddenSize)},
		{"learning_rate", len(g.LearningRate)},
		{"dropout_prob", len(g.DropoutProb)},
		{"fgsm_epsilon", len(g.FGSMEpsilon)},
		{"seed", len(g.Seed)},
	}
	for _, l := range lists {
		if l.n == 0 {
			return fmt.Errorf("%s: at least one value is required", l.name)
		}
	}
	seen := make(map[int]bool, len(g.Seed))
	for _, s := range g.Seed {
		if seen[s] {
			return fmt.Errorf("seed: duplicate value %d", s)
		}
		seen[s] = true
	}
	for _, sp := range g.Expand() {
		if err := sp.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Size is the number of statepoints Expand yields.
func (g Grid) Size() int {
	return len(g.NumEpochs) * len(g.BatchSize) * len(g.HiddenSize) *
		len(g.LearningRate) * len(g.DropoutProb) * len(g.FGSMEpsilon) * len(g.Seed)
}

// Expand returns the cartesian product of the grid, seeds varying fastest.
func (g Grid) Expand() []Statepoint {
	out := make([]Statepoint, 0, g.Size())
	for _, epochs := range g.NumEpochs {
		for _, batch := range g.BatchSize {
			for _, hidden := range g.HiddenSize {
				for _, lr := range g.LearningRate {
					for _, dropout := range g.DropoutProb {
						for _, eps := range g.FGSMEpsilon {
							for _, seed := range g.Seed {
								out = append(out, Statepoint{
									NumEpochs:    epochs,
									BatchSize:    batch,
									HiddenSize:   hidden,
									LearningRate: lr,
									DropoutProb:  dropout,
									FGSMEpsilon:  eps,
									Seed:         seed,
								})
							}
						}
					}
				}
			}
		}
	}
	return out
}
