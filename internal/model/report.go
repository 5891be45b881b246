package model

import (
	"fmt"
	"time"
)

// StatementStatus is the outcome of one executed statement.
type StatementStatus int

const (
	// StatementOK indicates the statement returned normally.
	StatementOK StatementStatus = iota
	// StatementFailed indicates the call returned an error.
	StatementFailed
	// StatementPanicked indicates the call panicked.
	StatementPanicked
	// StatementTimedOut indicates the call exceeded its timeout and was abandoned.
	StatementTimedOut
	// StatementSkipped indicates the statement was not run because an input failed.
	StatementSkipped
)

var statementStatusNames = []string{"ok", "failed", "panicked", "timed_out", "skipped"}

func (s StatementStatus) String() string {
	if s < 0 || int(s) >= len(statementStatusNames) {
		return "unknown"
	}

	return statementStatusNames[s]
}

// MarshalText renders the status name.
func (s StatementStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *StatementStatus) UnmarshalText(text []byte) error {
	for i, name := range statementStatusNames {
		if name == string(text) {
			*s = StatementStatus(i)

			return nil
		}
	}

	return fmt.Errorf("unknown statement status %q", text)
}

// Observation is what a cell writer receives for one executed statement.
type Observation struct {
	Statement int             `yaml:"statement" json:"statement"`
	Member    string          `yaml:"member,omitempty" json:"member,omitempty"`
	Status    StatementStatus `yaml:"status" json:"status"`
	Value     string          `yaml:"value,omitempty" json:"value,omitempty"`
	Error     string          `yaml:"error,omitempty" json:"error,omitempty"`
	Duration  time.Duration   `yaml:"duration" json:"duration"`
}

// SequenceRecord is the immutable outcome of one sequence against one
// adapter. Instantiated is false when the sequence could not be bound.
type SequenceRecord struct {
	Sequence     string        `yaml:"sequence" json:"sequence"`
	Instantiated bool          `yaml:"instantiated" json:"instantiated"`
	Passed       bool          `yaml:"passed" json:"passed"`
	Error        string        `yaml:"error,omitempty" json:"error,omitempty"`
	Observations []Observation `yaml:"observations,omitempty" json:"observations,omitempty"`
}

// Report groups the sequence records of one adapted implementation.
type Report struct {
	RunID       string           `yaml:"run_id" json:"run_id"`
	CUT         string           `yaml:"cut" json:"cut"`
	ClassName   string           `yaml:"class" json:"class"`
	AdapterID   int              `yaml:"adapter_id" json:"adapter_id"`
	Fingerprint string           `yaml:"fingerprint" json:"fingerprint"`
	Members     []string         `yaml:"members,omitempty" json:"members,omitempty"`
	Sequences   []SequenceRecord `yaml:"sequences,omitempty" json:"sequences,omitempty"`
	Mutants     []MutantReport   `yaml:"mutants,omitempty" json:"mutants,omitempty"`
}

// Passed counts the passing sequences.
func (r Report) Passed() int {
	passed := 0

	for _, seq := range r.Sequences {
		if seq.Passed {
			passed++
		}
	}

	return passed
}

// TestStatus represents the status of a mutant run.
type TestStatus int

const (
	// Killed indicates the mutant changed the observed behaviour.
	Killed TestStatus = iota
	// Survived indicates the mutant behaved like the original.
	Survived
	// Skipped indicates the mutant was not run.
	Skipped
	// Error indicates the mutant could not be built or adapted.
	Error
)

var testStatusNames = []string{"killed", "survived", "skipped", "error"}

func (s TestStatus) String() string {
	if s < 0 || int(s) >= len(testStatusNames) {
		return "unknown"
	}

	return testStatusNames[s]
}

// MarshalText renders the status name.
func (s TestStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *TestStatus) UnmarshalText(text []byte) error {
	for i, name := range testStatusNames {
		if name == string(text) {
			*s = TestStatus(i)

			return nil
		}
	}

	return fmt.Errorf("unknown test status %q", text)
}

// MutantReport is the outcome of one mutant of a CUT.
type MutantReport struct {
	MutationID string       `yaml:"mutation_id" json:"mutation_id"`
	Type       MutationType `yaml:"type" json:"type"`
	File       Path         `yaml:"file" json:"file"`
	Line       int          `yaml:"line" json:"line"`
	Status     TestStatus   `yaml:"status" json:"status"`
	Detail     string       `yaml:"detail,omitempty" json:"detail,omitempty"`
}
