package prompt

import "fmt"

// Direct asks for a bare YES or NO.
type Direct struct{}

// Name implements Protocol.
func (Direct) Name() string { return NameYesNo }

// Generate implements Protocol.
func (Direct) Generate(snippet, source, target string) string {
	return preamble(snippet) + fmt.Sprintf(
		"Does method `%s` invoke method `%s`, directly or indirectly?\n"+
			"Do not explain your reasoning.\n"+
			"Simply answer 'YES' or 'NO', and nothing else.",
		source, target)
}

// Evaluate accepts only the exact words yes and no, ignoring case.
func (Direct) Evaluate(reply string) Verdict {
	switch fold(reply) {
	case "yes":
		return Affirmative
	case "no":
		return Negative
	default:
		return Unparseable
	}
}
