package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/pkg/wizard"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fill in a form interactively",
	Long: `Walk a form step by step in the terminal and print the submitted values.

Examples:
  formflow run -f signup.yaml
  formflow run -f signup.yaml --values prefill.json --format pretty
  formflow run -f signup.yaml --output answers.json`,
	RunE: runRun,
}

var (
	runFile   string
	runValues string
	runOutput string
	runFormat string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "form definition (YAML or JSON)")
	runCmd.Flags().StringVar(&runValues, "values", "", "JSON file with prefilled values")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output file (stdout if empty)")
	runCmd.Flags().StringVar(&runFormat, "format", "", "output format: json, form or pretty (default from config)")
}

func runRun(cmd *cobra.Command, _ []string) error {
	form, err := loadForm(runFile)
	if err != nil {
		return err
	}
	session, err := newSession(form, runValues)
	if err != nil {
		return err
	}

	raw := runFormat
	if raw == "" {
		raw = cfg.Output.Format
	}
	format, err := wizard.ParseOutputFormat(raw)
	if err != nil {
		return err
	}

	runner, err := wizard.New(
		wizard.WithPromptDriver(newPromptDriver(cmd.OutOrStdout())),
		wizard.WithOutputFormat(format),
		wizard.WithLogger(logger),
		wizard.WithTheme(wizard.Theme{InfoPrefix: "» ", ErrorPrefix: "✗ "}),
	)
	if err != nil {
		return err
	}

	if form.Title != "" {
		fmt.Fprintln(cmd.OutOrStdout(), form.Title)
	}

	out, err := runner.Render(cmd.Context(), session)
	if errors.Is(err, wizard.ErrAborted) {
		fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
		return err
	}
	if err != nil {
		return err
	}

	if runOutput != "" {
		if err := os.WriteFile(runOutput, out, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Values written to %s\n", runOutput)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
