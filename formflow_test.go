package formflow

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/formdef"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

func TestExampleFormsLoad(t *testing.T) {
	forms, err := formdef.LoadDir(ExampleFormsFS())
	if err != nil {
		t.Fatalf("expected example forms to load: %v", err)
	}
	for _, id := range []string{"signup", "support"} {
		if forms[id] == nil {
			t.Fatalf("expected example form %q, got %v", id, forms)
		}
	}
}

func TestSupportFormCallbackIsSticky(t *testing.T) {
	form, err := LoadFormFS(ExampleFormsFS(), "support.yaml")
	if err != nil {
		t.Fatalf("LoadFormFS: %v", err)
	}
	session, err := form.NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	steps := []struct {
		field string
		value any
	}{
		{"category", "bug"},
		{"email", "sam@example.com"},
		{"callback", true},
	}
	for _, step := range steps {
		if _, err := session.Set(step.field, step.value); err != nil {
			t.Fatalf("Set(%s): %v", step.field, err)
		}
	}
	if !session.ActiveFields().Has("phone") {
		t.Fatalf("phone must show once a call back is requested")
	}

	if _, err := session.Set("category", "other"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !session.ActiveFields().Has("callback") {
		t.Fatalf("callback stays once unlocked")
	}
	if session.ActiveFields().Has("severity") {
		t.Fatalf("severity belongs to bug reports only")
	}
}

type abortingDriver struct{}

func (abortingDriver) Input(context.Context, wizard.InputConfig) (string, error) {
	return "", wizard.ErrAborted
}

func (abortingDriver) Confirm(context.Context, wizard.ConfirmConfig) (bool, error) {
	return false, wizard.ErrAborted
}

func (abortingDriver) Select(context.Context, wizard.SelectConfig) (int, error) {
	return 0, wizard.ErrAborted
}

func (abortingDriver) Info(context.Context, string) error {
	return nil
}

func TestRunWizardWiresSessionAndRunner(t *testing.T) {
	form, err := LoadFormFS(ExampleFormsFS(), "signup.yaml")
	if err != nil {
		t.Fatalf("LoadFormFS: %v", err)
	}

	_, err = RunWizard(context.Background(), form, nil, wizard.WithPromptDriver(abortingDriver{}))
	if !errors.Is(err, wizard.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}

	_, err = RunWizard(context.Background(), form, []flow.Option{flow.WithValues(flow.Values{"bogus": 1})})
	if !errors.Is(err, flow.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}
