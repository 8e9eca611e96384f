package condition

import "github.com/pkg/errors"

// node is one expression tree node. naturalKind reports the value kind the
// node would have without looking at runtime metrics — for a ${VAR}
// reference this is always KindString (the original implementation's
// getValueType() makes the same promise: a variable's declared type never
// changes, only its coerced type at the point of use).
type node interface {
	naturalKind() Kind
	eval(ctx *evalContext) (Value, error)
}

type evalContext struct {
	metrics map[string]string
}

func (c *evalContext) variable(name string) (string, error) {
	v, ok := c.metrics[name]
	if !ok {
		return "", errors.Wrapf(ErrUnknownVariable, "%q", name)
	}
	return v, nil
}

// --- literals ---

type numberLit struct{ v float64 }

func (n numberLit) naturalKind() Kind                   { return KindNumber }
func (n numberLit) eval(*evalContext) (Value, error)    { return numberValue(n.v), nil }

type stringLit struct{ v string }

func (s stringLit) naturalKind() Kind                { return KindString }
func (s stringLit) eval(*evalContext) (Value, error) { return stringValue(s.v), nil }

type boolLit struct{ v bool }

func (b boolLit) naturalKind() Kind                { return KindBool }
func (b boolLit) eval(*evalContext) (Value, error) { return boolValue(b.v), nil }

type variableRef struct{ name string }

func (v variableRef) naturalKind() Kind { return KindString }
func (v variableRef) eval(ctx *evalContext) (Value, error) {
	s, err := ctx.variable(v.name)
	if err != nil {
		return Value{}, err
	}
	return stringValue(s), nil
}

// --- NOT ---

type notExpr struct{ operand node }

func (n notExpr) naturalKind() Kind { return KindBool }
func (n notExpr) eval(ctx *evalContext) (Value, error) {
	v, err := n.operand.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	b, err := v.toBool()
	if err != nil {
		return Value{}, err
	}
	return boolValue(!b), nil
}

// --- AND / OR (short-circuit) ---

type andExpr struct{ left, right node }

func (a andExpr) naturalKind() Kind { return KindBool }
func (a andExpr) eval(ctx *evalContext) (Value, error) {
	lv, err := a.left.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	lb, err := lv.toBool()
	if err != nil {
		return Value{}, err
	}
	if !lb {
		return boolValue(false), nil
	}
	rv, err := a.right.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	rb, err := rv.toBool()
	if err != nil {
		return Value{}, err
	}
	return boolValue(rb), nil
}

type orExpr struct{ left, right node }

func (o orExpr) naturalKind() Kind { return KindBool }
func (o orExpr) eval(ctx *evalContext) (Value, error) {
	lv, err := o.left.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	lb, err := lv.toBool()
	if err != nil {
		return Value{}, err
	}
	if lb {
		return boolValue(true), nil
	}
	rv, err := o.right.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	rb, err := rv.toBool()
	if err != nil {
		return Value{}, err
	}
	return boolValue(rb), nil
}

// --- arithmetic: SUB, MUL, DIV always coerce to number (no overload) ---

type arithKind int

const (
	arithSub arithKind = iota
	arithMul
	arithDiv
)

type arithExpr struct {
	op          arithKind
	left, right node
}

func (a arithExpr) naturalKind() Kind { return KindNumber }
func (a arithExpr) eval(ctx *evalContext) (Value, error) {
	ln, rn, err := evalNumberPair(ctx, a.left, a.right)
	if err != nil {
		return Value{}, err
	}
	switch a.op {
	case arithSub:
		return numberValue(ln - rn), nil
	case arithMul:
		return numberValue(ln * rn), nil
	case arithDiv:
		if rn == 0 {
			return Value{}, errors.Wrapf(ErrDivByZero, "division by zero")
		}
		return numberValue(ln / rn), nil
	}
	return Value{}, errors.Errorf("condition: unknown arithmetic op %d", a.op)
}

func evalNumberPair(ctx *evalContext, left, right node) (float64, float64, error) {
	lv, err := left.eval(ctx)
	if err != nil {
		return 0, 0, err
	}
	rv, err := right.eval(ctx)
	if err != nil {
		return 0, 0, err
	}
	ln, err := lv.toNumber()
	if err != nil {
		return 0, 0, err
	}
	rn, err := rv.toNumber()
	if err != nil {
		return 0, 0, err
	}
	return ln, rn, nil
}

// --- relational: LT, LE, GT, GE always coerce to number (no overload) ---

type relKind int

const (
	relLt relKind = iota
	relLe
	relGt
	relGe
)

type relExpr struct {
	op          relKind
	left, right node
}

func (r relExpr) naturalKind() Kind { return KindBool }
func (r relExpr) eval(ctx *evalContext) (Value, error) {
	ln, rn, err := evalNumberPair(ctx, r.left, r.right)
	if err != nil {
		return Value{}, err
	}
	switch r.op {
	case relLt:
		return boolValue(ln < rn), nil
	case relLe:
		return boolValue(ln <= rn), nil
	case relGt:
		return boolValue(ln > rn), nil
	case relGe:
		return boolValue(ln >= rn), nil
	}
	return Value{}, errors.Errorf("condition: unknown relational op %d", r.op)
}

// --- overloaded ADD (ADD_NUM / ADD_STR) and EQ/NE (EQ_BOOL/EQ_NUM/EQ_STR) ---
//
// spec §4.1 lists separate NUM/STR (and for equality, BOOL) variants of these
// functions but the surface grammar reuses one token (+, ==, <>) for all of
// them. The original C++ source resolves the overload once, when the AST is
// built, from the static declared type of each operand (Value::getValueType,
// which is fixed for every node kind except a bare variable, whose declared
// type is always "string"). We resolve it the same way, with the documented
// precedence Bool > Number > String when picking among mismatched operand
// kinds (see DESIGN.md "condition overload resolution").

func dominantKind(a, b Kind) Kind {
	if a == KindBool || b == KindBool {
		return KindBool
	}
	if a == KindNumber || b == KindNumber {
		return KindNumber
	}
	return KindString
}

type addExpr struct {
	kind        Kind // resolved at build time: KindNumber or KindString
	left, right node
}

func newAddExpr(left, right node) addExpr {
	k := dominantKind(left.naturalKind(), right.naturalKind())
	if k == KindBool {
		// no ADD_BOOL variant exists; fall back to string concatenation of
		// "true"/"false" text, matching toString(bool) in the original.
		k = KindString
	}
	return addExpr{kind: k, left: left, right: right}
}

func (a addExpr) naturalKind() Kind { return a.kind }
func (a addExpr) eval(ctx *evalContext) (Value, error) {
	lv, err := a.left.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	rv, err := a.right.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	if a.kind == KindNumber {
		ln, err := lv.toNumber()
		if err != nil {
			return Value{}, err
		}
		rn, err := rv.toNumber()
		if err != nil {
			return Value{}, err
		}
		return numberValue(ln + rn), nil
	}
	return stringValue(lv.toStringValue() + rv.toStringValue()), nil
}

type eqKind int

const (
	eqEqual eqKind = iota
	eqNotEqual
)

type eqExpr struct {
	op          eqKind
	kind        Kind // resolved at build time: KindBool, KindNumber, or KindString
	left, right node
}

func newEqExpr(op eqKind, left, right node) eqExpr {
	return eqExpr{op: op, kind: dominantKind(left.naturalKind(), right.naturalKind()), left: left, right: right}
}

func (e eqExpr) naturalKind() Kind { return KindBool }
func (e eqExpr) eval(ctx *evalContext) (Value, error) {
	lv, err := e.left.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	rv, err := e.right.eval(ctx)
	if err != nil {
		return Value{}, err
	}

	var equal bool
	switch e.kind {
	case KindBool:
		lb, err := lv.toBool()
		if err != nil {
			return Value{}, err
		}
		rb, err := rv.toBool()
		if err != nil {
			return Value{}, err
		}
		equal = lb == rb
	case KindNumber:
		ln, err := lv.toNumber()
		if err != nil {
			return Value{}, err
		}
		rn, err := rv.toNumber()
		if err != nil {
			return Value{}, err
		}
		equal = ln == rn
	default:
		equal = lv.toStringValue() == rv.toStringValue()
	}

	if e.op == eqNotEqual {
		return boolValue(!equal), nil
	}
	return boolValue(equal), nil
}
