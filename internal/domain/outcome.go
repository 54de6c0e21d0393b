package domain

import (
	"encoding"
	"fmt"
	"strings"
)

// Outcome is the result of a single review attempt.
type Outcome int

const (
	Success Outcome = iota + 1 // The word was remembered.
	Failure                    // The word was forgotten.
)

var (
	outcomeNames  = [...]string{Success: "success", Failure: "failure"}
	outcomeByName = map[string]Outcome{
		"success": Success,
		"failure": Failure,
		"1":       Success,
		"0":       Failure,
	}
)

var (
	_ fmt.Stringer             = Outcome(0)
	_ encoding.TextMarshaler   = Outcome(0)
	_ encoding.TextUnmarshaler = (*Outcome)(nil)
)

// IsValid reports whether o is Success or Failure.
func (o Outcome) IsValid() bool {
	return o == Success || o == Failure
}

// String returns "success" or "failure", and "Outcome(n)" for anything else.
func (o Outcome) String() string {
	if o.IsValid() {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// ParseOutcome reads an outcome name. Matching ignores case and surrounding
// space; "1" and "0" are accepted for Success and Failure.
func ParseOutcome(s string) (Outcome, error) {
	o, ok := outcomeByName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
	return o, nil
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	if !o.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOutcome, int(o))
	}
	return []byte(outcomeNames[o]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
