package expr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/goliatone/go-formflow/pkg/visibility"
)

// ExtrasKey is the identifier under which visibility.Context.Extras is exposed
// to rules, e.g. `extras.role == "admin"`.
const ExtrasKey = "extras"

// ErrEmptyRule is returned by Compile for blank rule strings.
var ErrEmptyRule = errors.New("visibility/expr: empty rule")

// Evaluator compiles visibility rules with expr-lang and caches the compiled
// programs by source.
//
// Rules are plain expr expressions evaluated against the current values:
//
//	filled(name)
//	userType == "business" && filled(email)
//	age >= 18 || extras.role == "admin"
//
// A rule that yields a non-boolean result is interpreted through
// visibility.Filled, so a bare identifier such as `newsletter` reads as a
// presence check.
type Evaluator struct {
	mu      sync.RWMutex
	cache   map[string]*Rule
	options []exprlang.Option
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithFunction registers an additional function callable from rules.
func WithFunction(name string, fn func(params ...any) (any, error)) Option {
	return func(e *Evaluator) {
		if strings.TrimSpace(name) == "" || fn == nil {
			return
		}
		e.options = append(e.options, exprlang.Function(name, fn))
	}
}

// New constructs an Evaluator with the default helper functions `filled`,
// `blank`, `lower` and `trim`.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		cache: make(map[string]*Rule),
		options: []exprlang.Option{
			exprlang.AllowUndefinedVariables(),
			exprlang.Function("filled", func(params ...any) (any, error) {
				if len(params) != 1 {
					return nil, errors.New("filled requires 1 argument")
				}
				return visibility.Filled(params[0]), nil
			}),
			exprlang.Function("blank", func(params ...any) (any, error) {
				if len(params) != 1 {
					return nil, errors.New("blank requires 1 argument")
				}
				return visibility.Blank(params[0]), nil
			}),
			exprlang.Function("lower", func(params ...any) (any, error) {
				if len(params) != 1 {
					return nil, errors.New("lower requires 1 argument")
				}
				return strings.ToLower(text(params[0])), nil
			}),
			exprlang.Function("trim", func(params ...any) (any, error) {
				if len(params) != 1 {
					return nil, errors.New("trim requires 1 argument")
				}
				return strings.TrimSpace(text(params[0])), nil
			}),
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Compile parses and compiles rule, returning a cached Rule when the same
// source was compiled before.
func (e *Evaluator) Compile(rule string) (*Rule, error) {
	source := strings.TrimSpace(rule)
	if source == "" {
		return nil, ErrEmptyRule
	}

	e.mu.RLock()
	cached, ok := e.cache[source]
	e.mu.RUnlock()
	if ok {
		return cached, nil
	}

	tree, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("visibility/expr: parse %q: %w", source, err)
	}
	program, err := exprlang.Compile(source, e.options...)
	if err != nil {
		return nil, fmt.Errorf("visibility/expr: compile %q: %w", source, err)
	}

	compiled := &Rule{
		source:  source,
		program: program,
		refs:    references(tree.Node),
	}

	e.mu.Lock()
	e.cache[source] = compiled
	e.mu.Unlock()
	return compiled, nil
}

// Eval implements visibility.Evaluator. Blank rules always evaluate to true.
func (e *Evaluator) Eval(fieldPath, rule string, ctx visibility.Context) (bool, error) {
	if strings.TrimSpace(rule) == "" {
		return true, nil
	}
	compiled, err := e.Compile(rule)
	if err != nil {
		return false, err
	}
	ok, err := compiled.Eval(ctx)
	if err != nil {
		return false, fmt.Errorf("%w (field %s)", err, fieldPath)
	}
	return ok, nil
}

var _ visibility.Evaluator = (*Evaluator)(nil)

// Rule is a compiled rule ready for repeated evaluation.
type Rule struct {
	source  string
	program *vm.Program
	refs    []string
}

// Source returns the trimmed rule text.
func (r *Rule) Source() string {
	if r == nil {
		return ""
	}
	return r.source
}

// References lists the identifiers the rule reads, sorted and without the
// names of called functions.
func (r *Rule) References() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.refs...)
}

// Eval runs the rule against ctx.
func (r *Rule) Eval(ctx visibility.Context) (bool, error) {
	if r == nil || r.program == nil {
		return true, nil
	}
	out, err := exprlang.Run(r.program, environment(ctx))
	if err != nil {
		return false, fmt.Errorf("visibility/expr: eval %q: %w", r.source, err)
	}
	if b, ok := out.(bool); ok {
		return b, nil
	}
	return visibility.Filled(out), nil
}

func text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func environment(ctx visibility.Context) map[string]any {
	env := make(map[string]any, len(ctx.Values)+1)
	for key, value := range ctx.Values {
		env[key] = value
	}
	extras := ctx.Extras
	if extras == nil {
		extras = map[string]any{}
	}
	env[ExtrasKey] = extras
	return env
}

type referenceCollector struct {
	identifiers map[string]struct{}
	calls       map[string]struct{}
}

func (c *referenceCollector) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		c.identifiers[n.Value] = struct{}{}
	case *ast.CallNode:
		if callee, ok := n.Callee.(*ast.IdentifierNode); ok {
			c.calls[callee.Value] = struct{}{}
		}
	}
}

func references(root ast.Node) []string {
	collector := &referenceCollector{
		identifiers: make(map[string]struct{}),
		calls:       make(map[string]struct{}),
	}
	ast.Walk(&root, collector)

	out := make([]string, 0, len(collector.identifiers))
	for name := range collector.identifiers {
		if _, isCall := collector.calls[name]; isCall {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
