package toolexecutor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BatchFile is the on-disk form of a batch, in JSON or YAML.
//
//	strategy: parallel
//	mode: reviewer
//	calls:
//	  - name: wait
//	    arguments: {seconds: 1}
//
// A bare list of calls is also accepted.
type BatchFile struct {
	Strategy string     `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Mode     string     `json:"mode,omitempty" yaml:"mode,omitempty"` // custom mode slug whose tool policy applies
	Calls    []ToolCall `json:"calls" yaml:"calls"`
}

// ParseBatch decodes a batch document. Calls without an ID get a generated one.
func ParseBatch(data []byte) (*BatchFile, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("batch document is empty")
	}

	unmarshal := yaml.Unmarshal
	if data[0] == '{' || data[0] == '[' {
		unmarshal = json.Unmarshal
	}

	var file BatchFile
	var err error
	if data[0] == '[' || data[0] == '-' {
		err = unmarshal(data, &file.Calls)
	} else {
		err = unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch: %w", err)
	}

	for i := range file.Calls {
		if file.Calls[i].Name == "" {
			return nil, fmt.Errorf("call %d has no tool name", i)
		}
		if file.Calls[i].ID == "" {
			file.Calls[i].ID = NewCallID()
		}
	}

	return &file, nil
}

// LoadBatchFile reads and parses a batch file
func LoadBatchFile(path string) (*BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return ParseBatch(data)
}

// Batch returns the calls as an ExecutionBatch
func (f *BatchFile) Batch() ExecutionBatch {
	return ExecutionBatch(f.Calls)
}
