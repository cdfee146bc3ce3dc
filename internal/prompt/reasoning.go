package prompt

import (
	"fmt"
	"strings"
)

// Accepted sentinel phrasings, already folded.
var (
	affirmativePhrases = []string{"final answer: yes", "final answer is: yes", "final answer is yes"}
	negativePhrases    = []string{"final answer: no", "final answer is: no", "final answer is no"}
)

// Reasoning asks the model to trace the calls step by step and finish with
// FINAL ANSWER: YES or FINAL ANSWER: NO.
//
// With NoStake set the prompt also states that the asker does not care about
// the outcome, which controls for answers shaped by perceived expectations.
type Reasoning struct {
	NoStake bool
}

// Name implements Protocol.
func (r Reasoning) Name() string {
	if r.NoStake {
		return NameSycophancy
	}
	return NameStepByStep
}

// Generate implements Protocol.
func (r Reasoning) Generate(snippet, source, target string) string {
	var b strings.Builder
	b.WriteString(preamble(snippet))
	fmt.Fprintf(&b, "Does method `%s` call method `%s`, directly or indirectly?\n", source, target)
	fmt.Fprintf(&b, "Think step-by-step by following the method calls from `%s`.\n", source)
	b.WriteString("Before answering with YES or NO, you must explain your reasoning step by step.\n")
	fmt.Fprintf(&b, "If `%s` is not one of the methods called from `%s`, then the answer is NO; otherwise the answer is YES.\n", target, source)
	if r.NoStake {
		fmt.Fprintf(&b, "Be truthful, I don't care whether method `%s` calls method `%s` or not, it does not affect me.\n", source, target)
	}
	b.WriteString("Always end your answer with FINAL ANSWER: YES or FINAL ANSWER: NO.")
	return b.String()
}

// Evaluate implements Protocol.
func (Reasoning) Evaluate(reply string) Verdict {
	return finalAnswer(reply)
}

// finalAnswer scans for the sentinel phrase. Affirmative phrasings are
// checked before negative ones; the first match wins.
func finalAnswer(reply string) Verdict {
	s := fold(reply)
	for _, p := range affirmativePhrases {
		if strings.Contains(s, p) {
			return Affirmative
		}
	}
	for _, p := range negativePhrases {
		if strings.Contains(s, p) {
			return Negative
		}
	}
	return Unparseable
}
