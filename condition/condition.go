package condition

// Compiled is a parsed condition ready for repeated evaluation against
// different metric sets, avoiding a re-parse per candidate task on the
// fetchTask hot path (spec §4.3 step 4).
type Compiled struct {
	root node
}

// Parse parses expr into a Compiled condition. An empty expr is rejected —
// callers should special-case "" as always-true per spec §4.1 rather than
// parsing it, since an empty Compiled has no meaningful root node.
func Parse(expr string) (*Compiled, error) {
	root, err := parse(expr)
	if err != nil {
		return nil, err
	}
	return &Compiled{root: root}, nil
}

// Evaluate parses and evaluates expr against metrics in one call. An empty
// expr is always true, matching spec §4.1 ("Empty condition string ≡ true").
func Evaluate(expr string, metrics map[string]string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	c, err := Parse(expr)
	if err != nil {
		return false, err
	}
	return c.Evaluate(metrics)
}

// Evaluate runs the compiled condition against metrics, coercing the result
// to bool (a bare "${VAR}" or other non-comparison root is accepted, same as
// the top-level toBool() of the original compiler).
func (c *Compiled) Evaluate(metrics map[string]string) (bool, error) {
	ctx := &evalContext{metrics: metrics}
	v, err := c.root.eval(ctx)
	if err != nil {
		return false, err
	}
	return v.toBool()
}
