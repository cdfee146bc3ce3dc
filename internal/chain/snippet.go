package chain

import (
	"math/rand/v2"
	"strings"
)

// ClassName is the enclosing class of every rendered snippet.
const ClassName = "AClass"

// Declaration is one rendered procedure and the procedure it calls.
// Callee is empty for the last element of a chain.
type Declaration struct {
	Name   string
	Callee string
}

// Declarations returns one declaration per chain element, in chain order.
func (c Chain) Declarations() []Declaration {
	decls := make([]Declaration, len(c))
	for i, name := range c {
		callee, _ := c.Callee(i)
		decls[i] = Declaration{Name: name, Callee: callee}
	}
	return decls
}

// Snippet renders the chain as a Java class. With shuffle set the
// declaration order is permuted using rng; the calls are unchanged.
func Snippet(c Chain, shuffle bool, rng *rand.Rand) string {
	decls := c.Declarations()
	if shuffle && rng != nil {
		rng.Shuffle(len(decls), func(i, j int) {
			decls[i], decls[j] = decls[j], decls[i]
		})
	}
	return Render(decls)
}

// Render prints declarations in the given order.
func Render(decls []Declaration) string {
	var b strings.Builder
	b.WriteString("public class " + ClassName + " {\n")
	for i, d := range decls {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("  public void " + d.Name + "() {\n")
		if d.Callee != "" {
			b.WriteString("    " + d.Callee + "();\n")
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return b.String()
}
