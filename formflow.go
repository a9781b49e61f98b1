package formflow

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/formdef"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

// Form aliases formdef.Form so callers can stay on the root package for the
// common path.
type Form = formdef.Form

// Session aliases flow.Session.
type Session = flow.Session

// Values aliases flow.Values.
type Values = flow.Values

// LoadForm reads a JSON or YAML definition from disk.
func LoadForm(path string, options ...formdef.Option) (*Form, error) {
	return formdef.LoadFile(path, options...)
}

// LoadFormFS reads a JSON or YAML definition from fsys.
func LoadFormFS(fsys fs.FS, path string, options ...formdef.Option) (*Form, error) {
	return formdef.LoadFS(fsys, path, options...)
}

// RunWizard starts a session for form and walks it in the terminal,
// returning the submitted values. Session options (prefill, logger) go in
// sessionOptions; runner options (driver, output format) in options.
func RunWizard(ctx context.Context, form *Form, sessionOptions []flow.Option, options ...wizard.Option) (Values, error) {
	session, err := form.NewSession(sessionOptions...)
	if err != nil {
		return nil, err
	}
	runner, err := wizard.New(options...)
	if err != nil {
		return nil, err
	}
	return runner.Run(ctx, session)
}
