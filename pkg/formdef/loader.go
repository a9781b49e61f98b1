package formdef

import (
	"errors"
	"fmt"
	"html"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/validation"
	"github.com/goliatone/go-formflow/pkg/visibility"
	visexpr "github.com/goliatone/go-formflow/pkg/visibility/expr"
)

// valueKey is bound to the watched field's value inside sticky conditions.
const valueKey = "value"

// Option configures loading.
type Option func(*loader)

type loader struct {
	evaluator *visexpr.Evaluator
	extras    map[string]any
	policy    *bluemonday.Policy
}

// WithEvaluator supplies the rule evaluator, e.g. one with extra functions.
func WithEvaluator(e *visexpr.Evaluator) Option {
	return func(l *loader) {
		if e != nil {
			l.evaluator = e
		}
	}
}

// WithExtras exposes extra context to rules under `extras.`.
func WithExtras(extras map[string]any) Option {
	return func(l *loader) {
		l.extras = extras
	}
}

// WithPolicy overrides the sanitizer applied to labels and help text. The
// default strips all markup.
func WithPolicy(p *bluemonday.Policy) Option {
	return func(l *loader) {
		if p != nil {
			l.policy = p
		}
	}
}

func newLoader(opts []Option) *loader {
	l := &loader{}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.evaluator == nil {
		l.evaluator = visexpr.New()
	}
	if l.policy == nil {
		l.policy = bluemonday.StrictPolicy()
	}
	return l
}

// LoadFile reads and parses the definition at path.
func LoadFile(path string, opts ...Option) (*Form, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("formdef: read %s: %w", path, err)
	}
	return Load(data, path, opts...)
}

// LoadFS reads and parses the definition at path inside fsys.
func LoadFS(fsys fs.FS, path string, opts ...Option) (*Form, error) {
	if fsys == nil {
		return nil, errors.New("formdef: filesystem is nil")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("formdef: read %s: %w", path, err)
	}
	return Load(data, path, opts...)
}

// LoadDir loads every JSON/YAML definition found in fsys, keyed by form id.
func LoadDir(fsys fs.FS, opts ...Option) (map[string]*Form, error) {
	forms := make(map[string]*Form)
	if fsys == nil {
		return forms, nil
	}
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !IsDefinitionFile(path) {
			return nil
		}
		form, err := LoadFS(fsys, path, opts...)
		if err != nil {
			return err
		}
		if _, exists := forms[form.ID]; exists {
			return fmt.Errorf("formdef: duplicate form %q (file %s)", form.ID, path)
		}
		forms[form.ID] = form
		return nil
	})
	if err != nil {
		return nil, err
	}
	return forms, nil
}

// IsDefinitionFile reports whether path has a JSON or YAML extension.
func IsDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// Load parses data (JSON or YAML) and builds the form. source names the input
// in error messages and doubles as the form id fallback.
func Load(data []byte, source string, opts ...Option) (*Form, error) {
	doc, err := parseDocument(data, source)
	if err != nil {
		return nil, err
	}
	return newLoader(opts).build(doc, source)
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("formdef: file %s is empty", source)
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	return documentFile{}, fmt.Errorf("formdef: parse %s: invalid JSON or YAML", source)
}

func (l *loader) build(doc documentFile, source string) (*Form, error) {
	if len(doc.Steps) == 0 {
		return nil, fmt.Errorf("formdef: file %s defines no steps", source)
	}

	form := &Form{
		ID:          strings.TrimSpace(doc.ID),
		Title:       l.sanitize(doc.Title),
		Description: l.sanitize(doc.Description),
		Source:      source,
	}
	if form.ID == "" {
		form.ID = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}

	known := make(map[string]struct{})
	for _, step := range doc.Steps {
		for _, field := range step.Fields {
			known[strings.TrimSpace(field.Name)] = struct{}{}
		}
	}

	var (
		steps  []flow.StepDefinition
		fields []flow.FieldDefinition
		rules  []validation.Rule
		errs   []error
	)

	for idx, step := range doc.Steps {
		name := strings.TrimSpace(step.Name)
		if name == "" {
			name = fmt.Sprintf("step-%d", idx+1)
		}
		steps = append(steps, flow.StepDefinition{Name: name, Title: l.sanitize(step.Title)})
		if len(step.Fields) == 0 {
			errs = append(errs, fmt.Errorf("formdef: %s: step %q has no fields", source, name))
		}

		for _, raw := range step.Fields {
			def, err := l.field(raw, idx, known)
			if err != nil {
				errs = append(errs, fmt.Errorf("formdef: %s: %w", source, err))
				continue
			}
			fields = append(fields, def)
			if raw.Validate != "" || raw.Pattern != "" {
				rules = append(rules, validation.Rule{Field: def.Name, Tag: raw.Validate, Pattern: raw.Pattern})
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	registry, err := flow.NewRegistry(fields, flow.WithSteps(steps...))
	if err != nil {
		return nil, fmt.Errorf("formdef: %s: %w", source, err)
	}
	validator, err := validation.New(rules)
	if err != nil {
		return nil, fmt.Errorf("formdef: %s: %w", source, err)
	}

	form.Registry = registry
	form.Validator = validator
	return form, nil
}

func (l *loader) field(raw fieldFile, step int, known map[string]struct{}) (flow.FieldDefinition, error) {
	switch name := strings.TrimSpace(raw.Name); name {
	case valueKey, visexpr.ExtrasKey:
		return flow.FieldDefinition{}, fmt.Errorf("field %q: name is reserved in rules", name)
	}

	def := flow.FieldDefinition{
		Name:        strings.TrimSpace(raw.Name),
		Label:       l.sanitize(raw.Label),
		Help:        l.sanitize(raw.Help),
		Kind:        flow.Kind(strings.ToLower(strings.TrimSpace(raw.Kind))),
		Step:        step,
		Options:     raw.Options,
		Dependents:  raw.Dependents,
		VisibleWhen: strings.TrimSpace(raw.VisibleWhen),
		Empty:       raw.Empty,
	}

	if def.VisibleWhen != "" {
		rule, err := l.compile(def.Name, def.VisibleWhen, known, false)
		if err != nil {
			return flow.FieldDefinition{}, err
		}
		def.Visible = l.predicate(rule)
	}

	if raw.Sticky != nil {
		def.Sticky = &flow.UnlockRule{}
		if when := strings.TrimSpace(raw.Sticky.When); when != "" {
			rule, err := l.compile(def.Name, when, known, true)
			if err != nil {
				return flow.FieldDefinition{}, err
			}
			def.Sticky.Condition = l.condition(rule)
		}
	}

	return def, nil
}

func (l *loader) compile(field, source string, known map[string]struct{}, allowValue bool) (*visexpr.Rule, error) {
	rule, err := l.evaluator.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", field, err)
	}
	for _, ref := range rule.References() {
		if ref == visexpr.ExtrasKey || (allowValue && ref == valueKey) {
			continue
		}
		if _, ok := known[ref]; !ok {
			return nil, fmt.Errorf("field %q: rule %q references unknown field %q", field, source, ref)
		}
	}
	return rule, nil
}

// predicate adapts a compiled rule. Evaluation errors hide the field.
func (l *loader) predicate(rule *visexpr.Rule) flow.Predicate {
	return func(values flow.Values) bool {
		ok, err := rule.Eval(visibility.Context{Values: values, Extras: l.extras})
		return err == nil && ok
	}
}

func (l *loader) condition(rule *visexpr.Rule) flow.Condition {
	return func(value any, values flow.Values) bool {
		scope := values.Clone()
		scope[valueKey] = value
		ok, err := rule.Eval(visibility.Context{Values: scope, Extras: l.extras})
		return err == nil && ok
	}
}

// sanitize strips markup. The policy output is entity-encoded for HTML, so it
// is decoded again for the terminal.
func (l *loader) sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(l.policy.Sanitize(text)))
}
