package main

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/goliatone/go-formflow/pkg/flow"
	"github.com/goliatone/go-formflow/pkg/formdef"
)

func loadForm(path string) (*formdef.Form, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	form, err := formdef.LoadFile(path, formdef.WithExtras(cfg.Extras))
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("form", form.ID).
		Int("steps", form.Registry.StepCount()).
		Int("fields", len(form.Registry.Names())).
		Msg("form loaded")
	return form, nil
}

// readValues decodes a JSON object of field values. An empty path yields no
// values.
func readValues(path string) (flow.Values, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	var values flow.Values
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse values %s: %w", path, err)
	}
	return values, nil
}

func newSession(form *formdef.Form, valuesPath string) (*flow.Session, error) {
	values, err := readValues(valuesPath)
	if err != nil {
		return nil, err
	}
	return form.NewSession(flow.WithValues(values), flow.WithLogger(logger))
}
