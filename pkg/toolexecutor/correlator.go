package toolexecutor

import "fmt"

// correlator pairs results with the calls they belong to by batch index.
// Distinct slots may be placed from different goroutines; a single slot must
// only be placed once.
type correlator struct {
	batch  ExecutionBatch
	slots  []ToolResult
	filled []bool
}

func newCorrelator(batch ExecutionBatch) *correlator {
	return &correlator{
		batch:  batch,
		slots:  make([]ToolResult, len(batch)),
		filled: make([]bool, len(batch)),
	}
}

// place records the result for the call at index
func (c *correlator) place(index int, result ToolResult) error {
	if index < 0 || index >= len(c.slots) {
		return fmt.Errorf("result index %d out of range for batch of %d", index, len(c.slots))
	}
	if c.filled[index] {
		return fmt.Errorf("duplicate result for call %d (%s)", index, c.batch[index].ID)
	}

	c.slots[index] = result
	c.filled[index] = true

	return nil
}

// outcome assembles the index-aligned outcome; every slot must be filled
func (c *correlator) outcome() (ExecutionOutcome, error) {
	out := make(ExecutionOutcome, len(c.batch))
	for i, call := range c.batch {
		if !c.filled[i] {
			return nil, fmt.Errorf("missing result for call %d (%s)", i, call.ID)
		}
		out[i] = CallOutcome{Call: call, Result: c.slots[i]}
	}
	return out, nil
}
