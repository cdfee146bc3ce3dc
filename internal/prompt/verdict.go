package prompt

import "fmt"

// Verdict is the interpretation of a model reply.
type Verdict int

const (
	// Unparseable means the reply matched no accepted answer form.
	// It is the zero value so an unset verdict is never mistaken for an answer.
	Unparseable Verdict = iota
	// Affirmative means the model answered that source reaches target.
	Affirmative
	// Negative means the model answered that source does not reach target.
	Negative
)

// String returns the tabular form used in results tables and transcripts.
func (v Verdict) String() string {
	switch v {
	case Affirmative:
		return "YES"
	case Negative:
		return "NO"
	default:
		return "NA"
	}
}

// ParseVerdict is the inverse of Verdict.String.
func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "YES":
		return Affirmative, nil
	case "NO":
		return Negative, nil
	case "NA":
		return Unparseable, nil
	default:
		return Unparseable, fmt.Errorf("unknown verdict %q", s)
	}
}
