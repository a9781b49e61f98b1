package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formflow/internal/watch"
	"github.com/goliatone/go-formflow/pkg/formdef"
)

const (
	checkMark = "✓"
	crossMark = "✗"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate form definitions",
	Long: `Load form definitions and report problems: unknown field references,
dependency cycles, invalid rules or validation tags.

Without --file every definition under forms.dir is checked.

Examples:
  formflow check -f signup.yaml
  formflow check -f signup.yaml --watch
  formflow check`,
	RunE: runCheck,
}

var (
	checkFile  string
	checkWatch bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFile, "file", "f", "", "form definition (YAML or JSON)")
	checkCmd.Flags().BoolVarP(&checkWatch, "watch", "w", false, "re-check whenever the file changes")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if checkFile == "" {
		if checkWatch {
			return fmt.Errorf("--watch requires --file")
		}
		return checkDir(out, cfg.Forms.Dir)
	}

	err := checkOne(out, checkFile)
	if !checkWatch {
		return err
	}

	return watch.File(cmd.Context(), checkFile, logger, func() {
		_ = checkOne(out, checkFile)
	})
}

func checkOne(out io.Writer, path string) error {
	form, err := loadForm(path)
	if err != nil {
		fmt.Fprintf(out, "  %s %s\n      %v\n", crossMark, path, err)
		return fmt.Errorf("check failed: %s", path)
	}
	printForm(out, form)
	return nil
}

func checkDir(out io.Writer, dir string) error {
	forms, err := formdef.LoadDir(os.DirFS(dir), formdef.WithExtras(cfg.Extras))
	if err != nil {
		fmt.Fprintf(out, "  %s %s\n      %v\n", crossMark, dir, err)
		return fmt.Errorf("check failed: %s", dir)
	}
	if len(forms) == 0 {
		fmt.Fprintf(out, "No form definitions found in %s\n", dir)
		return nil
	}

	ids := make([]string, 0, len(forms))
	for id := range forms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		printForm(out, forms[id])
	}
	return nil
}

func printForm(out io.Writer, form *formdef.Form) {
	fmt.Fprintf(out, "  %s %s (%d steps, %d fields)\n",
		checkMark, form.ID, form.Registry.StepCount(), len(form.Registry.Names()))
}
