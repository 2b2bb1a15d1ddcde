package model

// This file contains the outcome taxonomy for glitch attempts and the
// reduction rule that folds repeated attempts into one verdict.

import (
	"encoding/json"
	"fmt"
)

// Outcome classifies how the target responded to a single glitch
// attempt. The numeric order is the interestingness order used when
// reducing repeated attempts (Normal < Mute < Odd < Successful).
// Values are never renumbered; stored runs reference the names.
type Outcome uint8

const (
	// OutcomeNormal is the expected refusal: the bootloader NACKed the
	// protected read, the glitch had no observable effect.
	OutcomeNormal Outcome = iota
	// OutcomeMute means the target stopped answering entirely,
	// usually crashed or held in reset by the fault.
	OutcomeMute
	// OutcomeOdd means the target answered with a byte that is
	// neither ACK nor NACK: the fault corrupted something.
	OutcomeOdd
	// OutcomeSuccessful means the protected read was acknowledged.
	OutcomeSuccessful
)

var outcomeNames = map[Outcome]string{
	OutcomeNormal:     "normal",
	OutcomeMute:       "mute",
	OutcomeOdd:        "odd",
	OutcomeSuccessful: "successful",
}

// String returns the lower-case name used in logs, reports and
// persisted run records.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

// ParseOutcome is the inverse of String.
func ParseOutcome(name string) (Outcome, error) {
	for o, n := range outcomeNames {
		if n == name {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", name)
}

// MarshalJSON persists the outcome by name, not by ordinal.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseOutcome(name)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Reduce folds the outcomes of repeated attempts at one parameter
// point into a single verdict. Equal inputs reduce to that value;
// mixed inputs reduce to the most interesting one, so a single
// Successful among repeated Normals is never discarded as noise.
// An empty input is a caller bug.
func Reduce(outcomes []Outcome) (Outcome, error) {
	if len(outcomes) == 0 {
		return 0, fmt.Errorf("cannot reduce an empty outcome sequence")
	}
	verdict := outcomes[0]
	for _, o := range outcomes[1:] {
		if o > verdict {
			verdict = o
		}
	}
	return verdict, nil
}
