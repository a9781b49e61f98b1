package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/internal/config"
	"github.com/goliatone/go-formflow/pkg/wizard"
)

var (
	// Global flags
	cfgFile string

	cfg    *config.Config
	logger = zerolog.Nop()

	// newPromptDriver is swapped in tests.
	newPromptDriver = func(out io.Writer) wizard.PromptDriver {
		return wizard.NewSurveyDriver(out)
	}
)

var rootCmd = &cobra.Command{
	Use:   "formflow",
	Short: "Progressive-disclosure forms in the terminal",
	Long: `formflow loads declarative form definitions and drives them as
multi-step wizards: fields appear as earlier answers make them relevant,
dependent answers are cleared when their source changes, and a step only
opens once its visible fields are valid.

Examples:
  formflow run -f signup.yaml
  formflow check -f signup.yaml --watch
  formflow eval -f signup.yaml --values answers.json`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file path")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded
	logger = cfg.Logger(cmd.ErrOrStderr())
	return nil
}
