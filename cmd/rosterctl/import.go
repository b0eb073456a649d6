package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/roster/internal/core"
)

type importOptions struct {
	mode   string
	dryRun bool
	quiet  bool
}

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import KIND FILE",
		Short: "Import a CSV, Excel or JSON file",
		Long: `Import validates every row of FILE and writes the valid ones.

KIND is members, payments, attendance or classes. In merge mode rows are
matched on the natural key of the kind and updated; in replace mode the kind
is cleared first. --dry-run validates against an empty in-memory store and
writes nothing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, a, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", string(core.ModeMerge), "merge or replace")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate only, write nothing")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "do not print progress")
	return cmd
}

func runImport(cmd *cobra.Command, a *app, opts importOptions, kindArg, path string) error {
	kind, err := core.ParseKind(kindArg)
	if err != nil {
		return err
	}
	mode, err := core.ParseMode(opts.mode)
	if err != nil {
		return err
	}

	if err := validateFileExists(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	ctx := cmd.Context()
	svc := a.offlineService()
	if !opts.dryRun {
		var closeStore func()
		svc, _, closeStore, err = a.openService(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
	}

	req := core.ImportRequest{
		Data:     data,
		FileName: filepath.Base(path),
		Kind:     kind,
		Mode:     mode,
	}
	if !opts.quiet {
		req.OnPhase = func(phase core.ImportPhase) {
			fmt.Fprintf(a.errOut, "%s...\n", phase)
		}
		req.OnProgress = func(pct float64) {
			fmt.Fprintf(a.errOut, "\r%5.1f%%", pct)
			if pct >= 100 {
				fmt.Fprintln(a.errOut)
			}
		}
	}

	result := svc.Import(ctx, req)
	printResult(a, result, opts.dryRun)

	if !result.Success {
		return fmt.Errorf("import of %s failed", filepath.Base(path))
	}
	return nil
}

func printResult(a *app, r core.ImportResult, dryRun bool) {
	verb := "Imported"
	if dryRun {
		verb = "Validated"
	}
	fmt.Fprintf(a.out, "%s %d of %d %s rows (%d skipped, mode %s) in %s\n",
		verb, r.ImportedRecords, r.TotalRecords, r.Kind, r.SkippedRecords, r.Mode, r.Duration.Round(time.Millisecond))
	for _, e := range r.ErrorStrings() {
		fmt.Fprintf(a.out, "  %s\n", e)
	}
}

// validateFileExists checks that path names a readable regular file.
func validateFileExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return nil
}
