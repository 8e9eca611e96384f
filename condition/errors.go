// Package condition implements the small typed expression language used to
// decide whether a queued task's condition admits a given worker's metrics
// (spec §4.1). It is a hand-rolled recursive-descent parser and tree-walking
// evaluator: the language needs string→bool/number coercion rules and
// deferred ${VAR} typing that a general-purpose expression engine like CEL
// does not offer without working against its type system at every turn (see
// DESIGN.md for the full rationale).
package condition

import "github.com/pkg/errors"

// Sentinel error kinds. Wrap one of these with errors.Wrap/Wrapf so callers
// can classify a failure with errors.Is without parsing message text.
var (
	// ErrParse is returned for any lexical or grammatical error.
	ErrParse = errors.New("condition: parse error")
	// ErrType is returned when a coercion between value kinds is impossible
	// (e.g. the string "maybe" cannot become a bool).
	ErrType = errors.New("condition: type error")
	// ErrUnknownVariable is returned when ${NAME} has no entry in the metrics map.
	ErrUnknownVariable = errors.New("condition: unknown variable")
	// ErrDivByZero is returned by DIV when the divisor is zero.
	ErrDivByZero = errors.New("condition: division by zero")
)
