package workspace

import (
	"encoding/json"
	"fmt"
	"os"
)

// Document is per-job metadata written when the job is first processed.
type Document struct {
	StartTime string `json:"start_time"`
	Seed      int    `json:"seed"`
	GitCommit string `json:"git_commit,omitempty"`
	GitBranch string `json:"git_branch,omitempty"`
}

func (j *Job) WriteDocument(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}
	return writeFileAtomic(j.Fn(DocumentFile), data)
}

func (j *Job) ReadDocument() (*Document, error) {
	data, err := os.ReadFile(j.Fn(DocumentFile))
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &doc, nil
}
