package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/flow"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a form against a set of values",
	Long: `Print, as JSON, which fields are visible for the given values, the
validation errors of visible fields, and whether each step can be passed.

Examples:
  formflow eval -f signup.yaml --values answers.json
  formflow eval -f signup.yaml --values answers.json --step 1`,
	RunE: runEval,
}

var (
	evalFile   string
	evalValues string
	evalStep   int
)

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalFile, "file", "f", "", "form definition (YAML or JSON)")
	evalCmd.Flags().StringVar(&evalValues, "values", "", "JSON file with field values")
	evalCmd.Flags().IntVar(&evalStep, "step", 0, "step whose gate is reported as canAdvance")
}

type stepReport struct {
	Name       string `json:"name"`
	Visible    bool   `json:"visible"`
	CanAdvance bool   `json:"canAdvance"`
}

type evalReport struct {
	Form       string            `json:"form"`
	Active     []string          `json:"active"`
	Unlocked   []string          `json:"unlocked"`
	Errors     map[string]string `json:"errors"`
	Step       int               `json:"step"`
	CanAdvance bool              `json:"canAdvance"`
	Steps      []stepReport      `json:"steps"`
}

func runEval(cmd *cobra.Command, _ []string) error {
	form, err := loadForm(evalFile)
	if err != nil {
		return err
	}
	session, err := newSession(form, evalValues)
	if err != nil {
		return err
	}
	if evalStep < 0 || evalStep >= session.StepCount() {
		return fmt.Errorf("--step: %w: %d", flow.ErrInvalidStep, evalStep)
	}

	active := session.ActiveFields()
	report := evalReport{
		Form:       form.ID,
		Active:     active.Ordered(form.Registry),
		Unlocked:   []string{},
		Errors:     map[string]string{},
		Step:       evalStep,
		CanAdvance: session.CanAdvanceAt(evalStep),
	}
	for field, msg := range session.Errors() {
		if active.Has(field) {
			report.Errors[field] = msg
		}
	}
	for _, field := range form.Registry.Fields() {
		if field.Sticky == nil {
			continue
		}
		if unlocked, _ := session.IsFieldUnlocked(field.Name); unlocked {
			report.Unlocked = append(report.Unlocked, field.Name)
		}
	}
	for idx, step := range form.Registry.Steps() {
		report.Steps = append(report.Steps, stepReport{
			Name:       step.Name,
			Visible:    session.StepVisible(idx),
			CanAdvance: session.CanAdvanceAt(idx),
		})
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
