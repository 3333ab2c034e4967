package translator

import (
	"github.com/gitrdm/hyvarrec/internal/smt"
)

// node is one AST term of a parsed constraint or preference. eval builds
// the corresponding Z3 term lazily, against whichever Session the
// encoder happens to be using at solve time.
type node interface {
	eval(s *smt.Session, featuresAsBoolean bool) smt.Term
	collectFeatures(out map[string]bool)
}

type identNode struct {
	kind string // "feature", "attribute", or "context"
	id   string
}

func (n identNode) eval(s *smt.Session, featuresAsBoolean bool) smt.Term {
	if n.kind == "feature" && featuresAsBoolean {
		return s.DeclareBool(n.id)
	}
	return s.DeclareInt(n.id)
}

func (n identNode) collectFeatures(out map[string]bool) {
	if n.kind == "feature" {
		out[n.id] = true
	}
}

type intNode struct{ v int }

func (n intNode) eval(s *smt.Session, _ bool) smt.Term  { return s.IntVal(n.v) }
func (intNode) collectFeatures(map[string]bool)         {}

type boolNode struct{ v bool }

func (n boolNode) eval(s *smt.Session, _ bool) smt.Term { return s.BoolVal(n.v) }
func (boolNode) collectFeatures(map[string]bool)        {}

type notNode struct{ x node }

func (n notNode) eval(s *smt.Session, b bool) smt.Term { return s.Not(n.x.eval(s, b)) }
func (n notNode) collectFeatures(out map[string]bool)  { n.x.collectFeatures(out) }

type binNode struct {
	op    string // "&&" "||" "->" "<->" "+" "-" "*" "=" "!=" "<" "<=" ">" ">="
	l, r  node
}

func (n binNode) eval(s *smt.Session, b bool) smt.Term {
	l := n.l.eval(s, b)
	r := n.r.eval(s, b)
	switch n.op {
	case "&&":
		return s.And(l, r)
	case "||":
		return s.Or(l, r)
	case "->":
		return s.Implies(l, r)
	case "<->":
		return s.Eq(l, r)
	case "+":
		return s.Sum(l, r)
	case "-":
		return s.Sub(l, r)
	case "*":
		return s.Mul(l, r)
	case "=":
		return s.Eq(l, r)
	case "!=":
		return s.Neq(l, r)
	case "<":
		return s.Lt(l, r)
	case "<=":
		return s.Le(l, r)
	case ">":
		return s.Gt(l, r)
	case ">=":
		return s.Ge(l, r)
	default:
		panic("translator: unknown operator " + n.op)
	}
}

func (n binNode) collectFeatures(out map[string]bool) {
	n.l.collectFeatures(out)
	n.r.collectFeatures(out)
}
