package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formflow/pkg/flow"
)

// Menu entries offered between steps.
const (
	ActionNext    = "Next"
	ActionBack    = "Back"
	ActionSubmit  = "Submit"
	ActionEdit    = "Edit this step"
	ActionRestart = "Start over"
)

// Runner walks a session step by step through a PromptDriver.
type Runner struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
	logger            zerolog.Logger
}

// New constructs a Runner with defaults (survey driver, JSON output).
func New(options ...Option) (*Runner, error) {
	r := &Runner{
		outputFormat: OutputFormatJSON,
		logger:       zerolog.Nop(),
		theme:        Theme{ErrorPrefix: "! "},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	if _, err := ParseOutputFormat(string(r.outputFormat)); err != nil {
		return nil, err
	}
	return r, nil
}

// ContentType reports the media type produced by Render.
func (r *Runner) ContentType() string {
	return ContentType(r.outputFormat)
}

// Render runs the wizard and serializes the submitted values.
func (r *Runner) Render(ctx context.Context, session *flow.Session) ([]byte, error) {
	values, err := r.Run(ctx, session)
	if err != nil {
		return nil, err
	}
	if r.submitTransformer != nil {
		values, err = r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("wizard: submit transformer: %w", err)
		}
	}
	return Encode(r.outputFormat, values, session.Registry().Names())
}

// Run prompts until the user submits the form and returns the submitted
// values (active fields only).
func (r *Runner) Run(ctx context.Context, session *flow.Session) (flow.Values, error) {
	if ctx == nil {
		return nil, errors.New("wizard: context is required")
	}
	if session == nil {
		return nil, errors.New("wizard: session is required")
	}

	backwards := false
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		step := session.Step()
		if !session.StepVisible(step) {
			done, err := r.passHidden(session, backwards)
			if err != nil {
				return nil, err
			}
			if !done {
				continue
			}
		} else if err := r.promptStep(ctx, session, step); err != nil {
			return nil, err
		}

		action, err := r.chooseAction(ctx, session)
		if err != nil {
			return nil, err
		}

		backwards = false
		switch action {
		case ActionNext:
			if err := session.Next(); err != nil {
				r.warn(ctx, "Cannot continue: fix the highlighted fields first")
			}
		case ActionBack:
			backwards = true
			session.Back()
		case ActionSubmit:
			values, err := session.Submit()
			if err != nil {
				r.warn(ctx, "Cannot submit: fix the highlighted fields first")
				continue
			}
			return values, nil
		case ActionRestart:
			session.Reset()
		}
	}
}

// passHidden moves over a step with no visible field in the current
// direction. It reports true when the hidden step is the last one, so the
// caller goes straight to the submit menu.
func (r *Runner) passHidden(session *flow.Session, backwards bool) (bool, error) {
	step := session.Step()
	r.logger.Debug().Int("step", step).Bool("backwards", backwards).Msg("passing hidden step")

	if backwards && step > 0 {
		session.Back()
		return false, nil
	}
	if session.LastStep() {
		return true, nil
	}
	if err := session.Next(); err != nil {
		if !errors.Is(err, flow.ErrStepBlocked) {
			return false, err
		}
		if step == 0 {
			return true, nil
		}
		session.Back()
	}
	return false, nil
}

// promptStep asks every active field of step in declaration order. Fields
// revealed by an answer are asked in the same pass.
func (r *Runner) promptStep(ctx context.Context, session *flow.Session, step int) error {
	registry := session.Registry()
	header := fmt.Sprintf("Step %d/%d", step+1, session.StepCount())
	if title := stepTitle(registry, step); title != "" {
		header += ": " + title
	}
	if err := r.driver.Info(ctx, r.theme.InfoPrefix+header); err != nil {
		return err
	}
	r.logger.Debug().Int("step", step).Msg("prompting step")

	asked := make(map[string]bool)
	for {
		field, ok := nextPending(session, step, asked)
		if !ok {
			return nil
		}
		asked[field.Name] = true
		if err := r.promptField(ctx, session, field); err != nil {
			return err
		}
	}
}

func nextPending(session *flow.Session, step int, asked map[string]bool) (flow.FieldDefinition, bool) {
	active := session.ActiveFields()
	for _, field := range session.Registry().FieldsInStep(step) {
		if asked[field.Name] || !active.Has(field.Name) {
			continue
		}
		return field, true
	}
	return flow.FieldDefinition{}, false
}

func (r *Runner) promptField(ctx context.Context, session *flow.Session, field flow.FieldDefinition) error {
	for {
		value, err := r.ask(ctx, session, field)
		if err != nil {
			if errors.Is(err, errUnparsable) {
				r.warn(ctx, fmt.Sprintf("Invalid %s: %v", field.DisplayLabel(), err))
				continue
			}
			return err
		}

		if _, err := session.Set(field.Name, value); err != nil {
			return err
		}
		msg, invalid := session.Errors()[field.Name]
		if !invalid {
			return nil
		}
		r.warn(ctx, fmt.Sprintf("Invalid %s: %s", field.DisplayLabel(), msg))
	}
}

var errUnparsable = errors.New("not a number")

func (r *Runner) ask(ctx context.Context, session *flow.Session, field flow.FieldDefinition) (any, error) {
	current := session.Value(field.Name)
	label := field.DisplayLabel()

	switch {
	case field.Kind == flow.KindBoolean:
		def, _ := current.(bool)
		return r.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: def, Help: field.Help})

	case len(field.Options) > 0:
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      field.Options,
			DefaultIndex: indexOf(field.Options, stringValue(current)),
			Help:         field.Help,
		})
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(field.Options) {
			return nil, fmt.Errorf("wizard: %s: selection %d out of range", field.Name, idx)
		}
		return field.Options[idx], nil

	case field.Kind == flow.KindInteger || field.Kind == flow.KindNumber:
		raw, err := r.driver.Input(ctx, InputConfig{Message: label, Default: stringValue(current), Help: field.Help})
		if err != nil {
			return nil, err
		}
		return parseNumber(raw, field)

	default:
		return r.driver.Input(ctx, InputConfig{Message: label, Default: stringValue(current), Help: field.Help})
	}
}

func parseNumber(raw string, field flow.FieldDefinition) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return field.EmptyValue(), nil
	}
	if field.Kind == flow.KindInteger {
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errUnparsable, raw)
		}
		return i, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errUnparsable, raw)
	}
	return f, nil
}

func (r *Runner) chooseAction(ctx context.Context, session *flow.Session) (string, error) {
	var options []string
	if session.CanAdvance() {
		if session.LastStep() {
			options = append(options, ActionSubmit)
		} else {
			options = append(options, ActionNext)
		}
	}
	if session.Step() > 0 {
		options = append(options, ActionBack)
	}
	options = append(options, ActionEdit, ActionRestart)

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      "What next?",
		Options:      options,
		DefaultIndex: 0,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(options) {
		return ActionEdit, nil
	}
	return options[idx], nil
}

func (r *Runner) warn(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}

func stepTitle(registry *flow.Registry, step int) string {
	steps := registry.Steps()
	if step < 0 || step >= len(steps) {
		return ""
	}
	if steps[step].Title != "" {
		return steps[step].Title
	}
	return steps[step].Name
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
