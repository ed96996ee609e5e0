package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrMissing reports an absent result file.
	ErrMissing = errors.New("result file missing")
	// ErrMalformed reports unparseable JSON or a missing required key.
	ErrMalformed = errors.New("result file malformed")
)

// Read loads and validates the result file at path.
func Read(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return nil, fmt.Errorf("reading result: %w", err)
	}
	res, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Parse validates a results.json document.
func Parse(data []byte) (*Result, error) {
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	missing := func(key string) error {
		return fmt.Errorf("%w: missing key %q", ErrMalformed, key)
	}
	switch {
	case r.TestAcc == nil:
		return nil, missing("test_acc")
	case r.TestLoss == nil:
		return nil, missing("test_loss")
	case r.ValAcc == nil:
		return nil, missing("val_acc")
	case r.ValLoss == nil:
		return nil, missing("val_loss")
	case r.FGSM == nil:
		return nil, missing("fgsm")
	case r.FGSM.Accuracy == nil:
		return nil, missing("fgsm.accuracy")
	}
	return &Result{
		TestAcc:      *r.TestAcc,
		TestLoss:     *r.TestLoss,
		ValAcc:       *r.ValAcc,
		ValLoss:      *r.ValLoss,
		FGSMAccuracy: *r.FGSM.Accuracy,
	}, nil
}
