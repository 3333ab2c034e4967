// Package smt wraps the Z3 theorem prover (via cgo bindings to libz3) behind
// the small surface the five reasoning engines need: declare bool/int
// variables, assert (optionally tracked) formulas, push/pop scopes, check
// satisfiability with an optional timeout, read back a model, pull an unsat
// core, and drive a lexicographic optimize.
//
// Session deliberately does not expose the full Z3 AST API. Each engine in
// pkg/engine/* only ever talks to a *Session, never to the Z3 C API directly,
// so the push/pop discipline and the quantifier tricks in SPEC_FULL.md live
// in exactly one place.
package smt

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
*/
import "C"

import (
	"errors"
	"runtime"
	"unsafe"
)

// ErrUnknown is returned when Z3 cannot decide satisfiability (e.g. the
// configured timeout elapsed before a decision was reached).
var ErrUnknown = errors.New("smt: solver returned unknown")

// Term is an opaque handle to a declared Z3 AST (a variable or a formula
// built from one). Terms are only ever valid within the Session that
// created them.
type Term struct {
	ast C.Z3_ast
}

// Session owns one Z3 context and either a non-optimizing Solver or an
// Optimize instance, matching SPEC_FULL.md §6's "exactly one solver
// instance per engine" rule. A Session is not safe for concurrent use.
type Session struct {
	cfg     C.Z3_config
	ctx     C.Z3_context
	solver  C.Z3_solver  // nil when optimizing
	opt     C.Z3_optimize // nil when not optimizing
	closed  bool
	tracked map[string]C.Z3_ast // tag -> tracked assertion, for UnsatCore lookups
}

// NewSolverSession opens a Session backed by a plain (non-optimizing)
// incremental Z3_solver, used by validate, explain, check-interface, and
// feature-analysis.
func NewSolverSession() *Session {
	s := newSession()
	s.solver = C.Z3_mk_solver(s.ctx)
	C.Z3_solver_inc_ref(s.ctx, s.solver)
	return s
}

// NewOptimizeSession opens a Session backed by a Z3_optimize instance, used
// by the reconfigure engine for its lexicographic objectives.
func NewOptimizeSession() *Session {
	s := newSession()
	s.opt = C.Z3_mk_optimize(s.ctx)
	C.Z3_optimize_inc_ref(s.ctx, s.opt)
	return s
}

func newSession() *Session {
	cfg := C.Z3_mk_config()
	ctx := C.Z3_mk_context(cfg)
	return &Session{
		cfg:     cfg,
		ctx:     ctx,
		tracked: make(map[string]C.Z3_ast),
	}
}

// Close releases the underlying Z3 context. It is safe to call more than
// once, and on a nil *Session.
func (s *Session) Close() {
	if s == nil || s.closed {
		return
	}
	if s.solver != nil {
		C.Z3_solver_dec_ref(s.ctx, s.solver)
	}
	if s.opt != nil {
		C.Z3_optimize_dec_ref(s.ctx, s.opt)
	}
	C.Z3_del_context(s.ctx)
	C.Z3_del_config(s.cfg)
	s.closed = true
	runtime.KeepAlive(s)
}

// --- declarations -----------------------------------------------------

// DeclareBool declares (or redeclares) a Boolean-sorted constant.
func (s *Session) DeclareBool(name string) Term {
	return Term{ast: s.constAST(name, C.Z3_mk_bool_sort(s.ctx))}
}

// DeclareInt declares (or redeclares) an integer-sorted constant.
func (s *Session) DeclareInt(name string) Term {
	return Term{ast: s.constAST(name, C.Z3_mk_int_sort(s.ctx))}
}

func (s *Session) constAST(name string, sort C.Z3_sort) C.Z3_ast {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	sym := C.Z3_mk_string_symbol(s.ctx, cname)
	return C.Z3_mk_const(s.ctx, sym, sort)
}

// IntVal builds an integer literal term.
func (s *Session) IntVal(v int) Term {
	return Term{ast: C.Z3_mk_int(s.ctx, C.int(v), C.Z3_mk_int_sort(s.ctx))}
}

// BoolVal builds a Boolean literal term.
func (s *Session) BoolVal(v bool) Term {
	if v {
		return Term{ast: C.Z3_mk_true(s.ctx)}
	}
	return Term{ast: C.Z3_mk_false(s.ctx)}
}

// --- formula combinators ----------------------------------------------

// Le builds `a <= b`.
func (s *Session) Le(a, b Term) Term { return Term{ast: C.Z3_mk_le(s.ctx, a.ast, b.ast)} }

// Ge builds `a >= b`.
func (s *Session) Ge(a, b Term) Term { return Term{ast: C.Z3_mk_ge(s.ctx, a.ast, b.ast)} }

// Eq builds `a == b`.
func (s *Session) Eq(a, b Term) Term { return Term{ast: C.Z3_mk_eq(s.ctx, a.ast, b.ast)} }

// Not builds `!a`.
func (s *Session) Not(a Term) Term { return Term{ast: C.Z3_mk_not(s.ctx, a.ast)} }

// And builds the conjunction of terms. An empty slice yields `true`.
func (s *Session) And(terms ...Term) Term {
	if len(terms) == 0 {
		return s.BoolVal(true)
	}
	asts := toASTs(terms)
	return Term{ast: C.Z3_mk_and(s.ctx, C.uint(len(asts)), &asts[0])}
}

// Or builds the disjunction of terms. An empty slice yields `false`.
func (s *Session) Or(terms ...Term) Term {
	if len(terms) == 0 {
		return s.BoolVal(false)
	}
	asts := toASTs(terms)
	return Term{ast: C.Z3_mk_or(s.ctx, C.uint(len(asts)), &asts[0])}
}

// Sum builds the integer sum of terms. An empty slice yields the literal 0.
func (s *Session) Sum(terms ...Term) Term {
	if len(terms) == 0 {
		return s.IntVal(0)
	}
	asts := toASTs(terms)
	return Term{ast: C.Z3_mk_add(s.ctx, C.uint(len(asts)), &asts[0])}
}

// Sub builds `a - b`.
func (s *Session) Sub(a, b Term) Term {
	asts := []C.Z3_ast{a.ast, b.ast}
	return Term{ast: C.Z3_mk_sub(s.ctx, 2, &asts[0])}
}

// Mul builds the integer product of terms.
func (s *Session) Mul(terms ...Term) Term {
	if len(terms) == 0 {
		return s.IntVal(1)
	}
	asts := toASTs(terms)
	return Term{ast: C.Z3_mk_mul(s.ctx, C.uint(len(asts)), &asts[0])}
}

// Lt builds `a < b`.
func (s *Session) Lt(a, b Term) Term { return s.Not(s.Ge(a, b)) }

// Gt builds `a > b`.
func (s *Session) Gt(a, b Term) Term { return s.Not(s.Le(a, b)) }

// Neq builds `a != b`.
func (s *Session) Neq(a, b Term) Term { return s.Not(s.Eq(a, b)) }

// Implies builds `a -> b`.
func (s *Session) Implies(a, b Term) Term { return s.Or(s.Not(a), b) }

// Abs builds `|a - b|` via an if-then-else, the idiom the default
// preference 4 of SPEC_FULL.md §4.1 uses to minimize attribute
// displacement from its initial value.
func (s *Session) Abs(a, b Term) Term {
	return s.If(s.Ge(a, b), s.Sub(a, b), s.Sub(b, a))
}

// If builds an if-then-else term (used to turn a Boolean into a 0/1 int
// term for counting objectives such as "keep initial features selected").
func (s *Session) If(cond, then, els Term) Term {
	return Term{ast: C.Z3_mk_ite(s.ctx, cond.ast, then.ast, els.ast)}
}

// BoolToCount turns a Boolean term into an integer term that is 1 when the
// Boolean holds and 0 otherwise, the idiom the default preferences in
// SPEC_FULL.md §4.1 use to count selected features and matched attributes.
func (s *Session) BoolToCount(b Term) Term {
	return s.If(b, s.IntVal(1), s.IntVal(0))
}

// ForAll builds a universal quantification of body over bound. Used by the
// validate engine's quantified mode and the interface-check engine's
// refinement check (SPEC_FULL.md §4.2.1, §4.4).
func (s *Session) ForAll(bound []Term, body Term) Term {
	if len(bound) == 0 {
		return body
	}
	asts := toASTs(bound)
	ast := C.Z3_mk_forall_const(s.ctx, 0, C.uint(len(asts)), (*C.Z3_app)(unsafe.Pointer(&asts[0])), 0, nil, body.ast)
	return Term{ast: ast}
}

func toASTs(terms []Term) []C.Z3_ast {
	out := make([]C.Z3_ast, len(terms))
	for i, t := range terms {
		out[i] = t.ast
	}
	return out
}

// --- assertion / scope protocol -----------------------------------------

// Assert adds term as a hard (untracked) assertion.
func (s *Session) Assert(term Term) {
	if s.opt != nil {
		C.Z3_optimize_assert(s.ctx, s.opt, term.ast)
		return
	}
	C.Z3_solver_assert(s.ctx, s.solver, term.ast)
}

// AssertAndTrack adds term as a hard assertion tagged by name so it can
// later appear in an UnsatCore. Only meaningful on a non-optimizing
// Session (the explain engine's tracked-assertion protocol, SPEC_FULL.md
// §4.3); the tag is a fresh Boolean constant per the Z3 convention.
func (s *Session) AssertAndTrack(term Term, tag string) {
	tagTerm := s.DeclareBool("track!" + tag)
	s.tracked[tag] = tagTerm.ast
	C.Z3_solver_assert_and_track(s.ctx, s.solver, term.ast, tagTerm.ast)
}

// Push opens a new assertion scope.
func (s *Session) Push() {
	if s.opt != nil {
		C.Z3_optimize_push(s.ctx, s.opt)
		return
	}
	C.Z3_solver_push(s.ctx, s.solver)
}

// Pop closes the most recently opened scope, discarding everything
// asserted since the matching Push.
func (s *Session) Pop() {
	if s.opt != nil {
		C.Z3_optimize_pop(s.ctx, s.opt)
		return
	}
	C.Z3_solver_pop(s.ctx, s.solver, 1)
}

// Scope runs fn between a Push and a guaranteed Pop, so every push is
// paired with a pop on every exit path including a panic — the scoped
// acquisition rule of SPEC_FULL.md §5.
func (s *Session) Scope(fn func() error) error {
	s.Push()
	defer s.Pop()
	return fn()
}

// SetTimeoutMillis sets the solver's timeout for subsequent Check calls. A
// timeout is observationally identical to unsat per SPEC_FULL.md §5.
func (s *Session) SetTimeoutMillis(ms int) {
	pname := C.CString("timeout")
	defer C.free(unsafe.Pointer(pname))
	params := C.Z3_mk_params(s.ctx)
	C.Z3_params_inc_ref(s.ctx, params)
	defer C.Z3_params_dec_ref(s.ctx, params)
	sym := C.Z3_mk_string_symbol(s.ctx, pname)
	C.Z3_params_set_uint(s.ctx, params, sym, C.uint(ms))
	if s.opt != nil {
		C.Z3_optimize_set_params(s.ctx, s.opt, params)
		return
	}
	C.Z3_solver_set_params(s.ctx, s.solver, params)
}

// SetNonIncremental mirrors the original implementation's
// `combined_solver.solver2_timeout=1` tuning, which forces Z3's combined
// solver to fall back to its non-incremental tactic path after one
// millisecond instead of reusing incremental solver state. Exposed for the
// `--non-incremental-solver` flag (SPEC_FULL.md §9).
func (s *Session) SetNonIncremental() {
	pname := C.CString("combined_solver.solver2_timeout")
	defer C.free(unsafe.Pointer(pname))
	params := C.Z3_mk_params(s.ctx)
	C.Z3_params_inc_ref(s.ctx, params)
	defer C.Z3_params_dec_ref(s.ctx, params)
	sym := C.Z3_mk_string_symbol(s.ctx, pname)
	C.Z3_params_set_uint(s.ctx, params, sym, 1)
	if s.opt != nil {
		C.Z3_optimize_set_params(s.ctx, s.opt, params)
		return
	}
	C.Z3_solver_set_params(s.ctx, s.solver, params)
}

// EnableCoreMinimization enables Z3's unsat-core minimization pass, used by
// the explain engine when `--constraints-minimization` is set.
func (s *Session) EnableCoreMinimization() {
	pname := C.CString("smt.core.minimize")
	defer C.free(unsafe.Pointer(pname))
	params := C.Z3_mk_params(s.ctx)
	C.Z3_params_inc_ref(s.ctx, params)
	defer C.Z3_params_dec_ref(s.ctx, params)
	sym := C.Z3_mk_string_symbol(s.ctx, pname)
	C.Z3_params_set_bool(s.ctx, params, sym, true)
	C.Z3_solver_set_params(s.ctx, s.solver, params)
}

// --- objectives (optimizing sessions only) -------------------------------

// Maximize registers a maximization objective. Priority follows
// registration order (Z3's optimize objectives are lexicographic by
// default), matching SPEC_FULL.md §4.1's ordering rule.
func (s *Session) Maximize(term Term) {
	C.Z3_optimize_maximize(s.ctx, s.opt, term.ast)
}

// Minimize registers a minimization objective.
func (s *Session) Minimize(term Term) {
	C.Z3_optimize_minimize(s.ctx, s.opt, term.ast)
}

// --- check / model / core -------------------------------------------------

// CheckResult is the three-valued outcome of Check.
type CheckResult int

const (
	Unsat CheckResult = iota
	Sat
	Unknown
)

// Check runs satisfiability checking (or, on an optimizing Session, finds
// optimal values for the registered objectives subject to the asserted
// hard constraints).
func (s *Session) Check() (CheckResult, error) {
	var lb C.Z3_lbool
	if s.opt != nil {
		lb = C.Z3_optimize_check(s.ctx, s.opt, 0, nil)
	} else {
		lb = C.Z3_solver_check(s.ctx, s.solver)
	}
	switch lb {
	case C.Z3_L_TRUE:
		return Sat, nil
	case C.Z3_L_FALSE:
		return Unsat, nil
	default:
		return Unknown, ErrUnknown
	}
}

// Model is a read-only handle to the model produced by the last
// satisfiable Check.
type Model struct {
	s *Session
	m C.Z3_model
}

// Model returns the model for the last successful Check. Must only be
// called immediately after Check returned Sat.
func (s *Session) Model() *Model {
	var m C.Z3_model
	if s.opt != nil {
		m = C.Z3_optimize_get_model(s.ctx, s.opt)
	} else {
		m = C.Z3_solver_get_model(s.ctx, s.solver)
	}
	C.Z3_model_inc_ref(s.ctx, m)
	return &Model{s: s, m: m}
}

// Close releases the model's reference.
func (m *Model) Close() {
	if m == nil || m.m == nil {
		return
	}
	C.Z3_model_dec_ref(m.s.ctx, m.m)
	m.m = nil
}

// EvalInt evaluates an integer term in the model and returns its value.
func (m *Model) EvalInt(term Term) (int, bool) {
	var out C.Z3_ast
	ok := C.Z3_model_eval(m.s.ctx, m.m, term.ast, C.bool(true), &out)
	if ok == 0 {
		return 0, false
	}
	var iv C.int
	if C.Z3_get_numeral_int(m.s.ctx, out, &iv) == 0 {
		return 0, false
	}
	return int(iv), true
}

// EvalBool evaluates a Boolean term in the model.
func (m *Model) EvalBool(term Term) (bool, bool) {
	var out C.Z3_ast
	ok := C.Z3_model_eval(m.s.ctx, m.m, term.ast, C.bool(true), &out)
	if ok == 0 {
		return false, false
	}
	switch C.Z3_get_bool_value(m.s.ctx, out) {
	case C.Z3_L_TRUE:
		return true, true
	case C.Z3_L_FALSE:
		return false, true
	default:
		return false, false
	}
}

// UnsatCore returns the tags passed to AssertAndTrack whose assertions
// participated in the last unsat Check.
func (s *Session) UnsatCore() []string {
	vec := C.Z3_solver_get_unsat_core(s.ctx, s.solver)
	C.Z3_ast_vector_inc_ref(s.ctx, vec)
	defer C.Z3_ast_vector_dec_ref(s.ctx, vec)

	size := int(C.Z3_ast_vector_size(s.ctx, vec))
	present := make(map[C.Z3_ast]bool, size)
	for i := 0; i < size; i++ {
		present[C.Z3_ast_vector_get(s.ctx, vec, C.uint(i))] = true
	}

	var tags []string
	for tag, ast := range s.tracked {
		if present[ast] {
			tags = append(tags, tag)
		}
	}
	return tags
}

// ParseSMT2 parses a standalone SMT-LIB2 string (as supplied directly by
// an input document's `smt_constraints`/`smt_preferences` fields,
// SPEC_FULL.md §9) into terms, one per top-level assertion. Unlike the
// original implementation, which round-tripped its own translator output
// through SMT-LIB2 text to cross a multiprocessing fork boundary, this is
// used only for genuinely pre-authored SMT-LIB2 input — Go's translator
// never needs the round-trip since its worker pool shares memory.
func (s *Session) ParseSMT2(src string) []Term {
	csrc := C.CString(src)
	defer C.free(unsafe.Pointer(csrc))
	vec := C.Z3_parse_smt2_string(s.ctx, csrc, 0, nil, nil, 0, nil, nil)
	C.Z3_ast_vector_inc_ref(s.ctx, vec)
	defer C.Z3_ast_vector_dec_ref(s.ctx, vec)

	size := int(C.Z3_ast_vector_size(s.ctx, vec))
	out := make([]Term, size)
	for i := 0; i < size; i++ {
		out[i] = Term{ast: C.Z3_ast_vector_get(s.ctx, vec, C.uint(i))}
	}
	return out
}

// String renders the accumulated assertions, primarily for debug logging.
func (s *Session) String() string {
	if s.opt != nil {
		return C.GoString(C.Z3_optimize_to_string(s.ctx, s.opt))
	}
	return C.GoString(C.Z3_solver_to_string(s.ctx, s.solver))
}
