// Package statepoint defines the immutable parameter records that identify
// one experiment configuration, and the grid they are expanded from.
package statepoint

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// namespace scopes job IDs so that equal statepoints always map to the same ID.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/signalnine/sweep/statepoint"))

// Columns names the report columns shared by every member of a seed group.
var Columns = []string{
	"num_epochs",
	"batch_size",
	"hidden_size",
	"learning_rate",
	"dropout_prob",
	"fgsm_epsilon",
}

type Statepoint struct {
	NumEpochs    int     `json:"num_epochs" yaml:"num_epochs"`
	BatchSize    int     `json:"batch_size" yaml:"batch_size"`
	HiddenSize   int     `json:"hidden_size" yaml:"hidden_size"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
	DropoutProb  float64 `json:"dropout_prob" yaml:"dropout_prob"`
	FGSMEpsilon  float64 `json:"fgsm_epsilon" yaml:"fgsm_epsilon"`
	Seed         int     `json:"seed" yaml:"seed"`
}

func (sp Statepoint) Validate() error {
	switch {
	case sp.NumEpochs < 1:
		return fmt.Errorf("num_epochs must be at least 1, got %d", sp.NumEpochs)
	case sp.BatchSize < 1:
		return fmt.Errorf("batch_size must be at least 1, got %d", sp.BatchSize)
	case sp.HiddenSize < 1:
		return fmt.Errorf("hidden_size must be at least 1, got %d", sp.HiddenSize)
	case sp.LearningRate <= 0:
		return fmt.Errorf("learning_rate must be positive, got %v", sp.LearningRate)
	case sp.DropoutProb < 0 || sp.DropoutProb >= 1:
		return fmt.Errorf("dropout_prob must be in [0, 1), got %v", sp.DropoutProb)
	case sp.FGSMEpsilon < 0:
		return fmt.Errorf("fgsm_epsilon must not be negative, got %v", sp.FGSMEpsilon)
	}
	return nil
}

// Key returns the statepoint with the seed cleared. Jobs with equal keys
// form one seed group.
func (sp Statepoint) Key() Statepoint {
	sp.Seed = 0
	return sp
}

// ID is a deterministic identifier derived from the canonical JSON encoding.
func (sp Statepoint) ID() string {
	data, err := json.Marshal(sp)
	if err != nil {
		// A struct of ints and floats always marshals unless a float is NaN/Inf,
		// which Validate rejects.
		panic(fmt.Sprintf("statepoint: marshaling %+v: %v", sp, err))
	}
	id := uuid.NewSHA1(namespace, data)
	return strings.ReplaceAll(id.String(), "-", "")
}

// Values renders the six shared parameters in Columns order.
func (sp Statepoint) Values() []string {
	return []string{
		strconv.Itoa(sp.NumEpochs),
		strconv.Itoa(sp.BatchSize),
		strconv.Itoa(sp.HiddenSize),
		formatFloat(sp.LearningRate),
		formatFloat(sp.DropoutProb),
		formatFloat(sp.FGSMEpsilon),
	}
}

func (sp Statepoint) String() string {
	return fmt.Sprintf("epochs=%d batch=%d hidden=%d lr=%s dropout=%s eps=%s seed=%d",
		sp.NumEpochs, sp.BatchSize, sp.HiddenSize,
		formatFloat(sp.LearningRate), formatFloat(sp.DropoutProb), formatFloat(sp.FGSMEpsilon), sp.Seed)
}

// Less orders statepoints by grid nesting order.
func Less(a, b Statepoint) bool {
	switch {
	case a.NumEpochs != b.NumEpochs:
		return a.NumEpochs < b.NumEpochs
	case a.BatchSize != b.BatchSize:
		return a.BatchSize < b.BatchSize
	case a.HiddenSize != b.HiddenSize:
		return a.HiddenSize < b.HiddenSize
	case a.LearningRate != b.LearningRate:
		return a.LearningRate < b.LearningRate
	case a.DropoutProb != b.DropoutProb:
		return a.DropoutProb < b.DropoutProb
	case a.FGSMEpsilon != b.FGSMEpsilon:
		return a.FGSMEpsilon < b.FGSMEpsilon
	}
	return a.Seed < b.Seed
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
