// Package prompt turns benchmark cases into model queries and model replies
// back into verdicts.
//
// Every protocol implements the same two operations, so the execution engine
// never needs to know which one is configured:
//
//	p, _ := prompt.Lookup("step-by-step")
//	text := p.Generate(snippet, "m1", "m3")
//	verdict := p.Evaluate(reply)
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Protocol asks the reachability question and interprets the answer.
type Protocol interface {
	// Name is the configuration name of the protocol.
	Name() string
	// Generate renders the query for snippet, asking whether source
	// invokes target directly or indirectly.
	Generate(snippet, source, target string) string
	// Evaluate classifies a free-text reply. It is total: every input
	// yields exactly one verdict and it never panics.
	Evaluate(reply string) Verdict
}

// Protocol names.
const (
	NameYesNo      = "yes-no"
	NameStepByStep = "step-by-step"
	NameSycophancy = "sycophancy"
)

var protocols = map[string]func() Protocol{
	NameYesNo:      func() Protocol { return Direct{} },
	NameStepByStep: func() Protocol { return Reasoning{} },
	NameSycophancy: func() Protocol { return Reasoning{NoStake: true} },
}

// Lookup returns the protocol registered under name (case-insensitive).
func Lookup(name string) (Protocol, error) {
	if ctor, ok := protocols[strings.ToLower(name)]; ok {
		return ctor(), nil
	}
	return nil, fmt.Errorf("unknown prompt strategy %q: must be one of %v", name, Names())
}

// Names lists the registered protocol names, sorted.
func Names() []string {
	names := make([]string, 0, len(protocols))
	for name := range protocols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fold lower-cases a reply for comparison. Casers are stateful, so one is
// built per call; Evaluate runs from many goroutines.
func fold(s string) string {
	return cases.Lower(language.Und).String(norm.NFC.String(s))
}

const fence = "```"

// preamble presents the snippet. Trailing newlines are trimmed so the closing
// fence sits right below the class.
func preamble(snippet string) string {
	var b strings.Builder
	b.WriteString("Here's a Java code snippet:\n\n")
	b.WriteString(fence + "\n")
	b.WriteString(strings.TrimRight(snippet, "\n"))
	b.WriteString("\n" + fence + "\n\n")
	return b.String()
}
