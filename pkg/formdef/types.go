package formdef

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Form is a loaded, validated form definition.
type Form struct {
	ID          string
	Title       string
	Description string
	Source      string
	Registry    *flow.Registry
	Validator   *validation.Validator
}

// NewSession starts a flow session wired to the form's validator.
func (f *Form) NewSession(opts ...flow.Option) (*flow.Session, error) {
	all := append([]flow.Option{flow.WithValidator(f.Validator)}, opts...)
	return flow.NewSession(f.Registry, all...)
}

// NewSessionWithLogger is a shorthand for NewSession with flow.WithLogger.
func (f *Form) NewSessionWithLogger(logger zerolog.Logger, opts ...flow.Option) (*flow.Session, error) {
	return f.NewSession(append(opts, flow.WithLogger(logger))...)
}

type documentFile struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Steps       []stepFile `json:"steps" yaml:"steps"`
}

type stepFile struct {
	Name   string      `json:"name" yaml:"name"`
	Title  string      `json:"title" yaml:"title"`
	Fields []fieldFile `json:"fields" yaml:"fields"`
}

type fieldFile struct {
	Name        string      `json:"name" yaml:"name"`
	Label       string      `json:"label" yaml:"label"`
	Help        string      `json:"help" yaml:"help"`
	Kind        string      `json:"kind" yaml:"kind"`
	Options     []string    `json:"options" yaml:"options"`
	VisibleWhen string      `json:"visible_when" yaml:"visible_when"`
	Dependents  []string    `json:"dependents" yaml:"dependents"`
	Validate    string      `json:"validate" yaml:"validate"`
	Pattern     string      `json:"pattern" yaml:"pattern"`
	Sticky      *stickyFile `json:"sticky" yaml:"sticky"`
	Empty       any         `json:"empty" yaml:"empty"`
}

type stickyFile struct {
	When string `json:"when" yaml:"when"`
}
