package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/roster/internal/blob"
	"github.com/JonMunkholm/roster/internal/bootstrap"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/tabular"
)

type exportOptions struct {
	format string
	from   string
	to     string
	name   string
	outDir string
	zip    bool
}

func newExportCmd(a *app) *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export TARGET",
		Short: "Export one kind or all kinds",
		Long: `Export writes TARGET (members, payments, attendance, classes or all) to
files. --from and --to limit dated kinds to an inclusive range of days.

Files go to --out when given, otherwise to EXPORT_S3_BUCKET or EXPORT_DIR.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, a, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", string(tabular.FormatCSV), "csv, xlsx or json")
	cmd.Flags().StringVar(&opts.from, "from", "", "first day to include (dated kinds only)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last day to include (dated kinds only)")
	cmd.Flags().StringVar(&opts.name, "name", "", "base file name (default: the target)")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "write files to this directory")
	cmd.Flags().BoolVar(&opts.zip, "zip", false, "bundle several CSV files into one zip archive")
	return cmd
}

func runExport(cmd *cobra.Command, a *app, opts exportOptions, target string) error {
	format, err := tabular.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	dateRange, err := parseRange(opts.from, opts.to)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, cfg, closeStore, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, err := svc.Export(ctx, core.ExportRequest{
		Format:   format,
		Target:   target,
		Range:    dateRange,
		FileName: opts.name,
	})
	if err != nil {
		return err
	}

	if opts.zip && len(blobs) > 1 {
		name := opts.name
		if name == "" {
			name = target
		}
		archive, err := blob.Zip(name+".zip", blobs, time.Now())
		if err != nil {
			return err
		}
		blobs = []core.Blob{archive}
	}

	var sink blob.Sink = blob.DirSink{Dir: opts.outDir}
	if opts.outDir == "" {
		if sink, err = bootstrap.NewSink(ctx, cfg.Export); err != nil {
			return err
		}
	}

	locations, err := blob.PutAll(ctx, sink, blobs)
	if err != nil {
		return err
	}
	for _, loc := range locations {
		fmt.Fprintln(a.out, loc)
	}
	return nil
}

// parseRange builds an inclusive day range from optional bounds.
func parseRange(from, to string) (*core.DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	var r core.DateRange
	for _, b := range []struct {
		flag, value string
		dst         *time.Time
	}{
		{"--from", from, &r.Start},
		{"--to", to, &r.End},
	} {
		if b.value == "" {
			continue
		}
		t, ok := core.ParseDate(b.value)
		if !ok {
			return nil, fmt.Errorf("invalid date %q for %s", b.value, b.flag)
		}
		*b.dst = t
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return nil, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	return &r, nil
}
