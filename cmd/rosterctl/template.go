package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/roster/internal/blob"
	"github.com/JonMunkholm/roster/internal/core"
	"github.com/JonMunkholm/roster/internal/tabular"
)

func newTemplateCmd(a *app) *cobra.Command {
	var format, outDir string

	cmd := &cobra.Command{
		Use:   "template KIND",
		Short: "Write an example import file for a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := core.ParseKind(args[0])
			if err != nil {
				return err
			}
			f, err := tabular.ParseFormat(format)
			if err != nil {
				return err
			}

			b, err := a.offlineService().Template(kind, f)
			if err != nil {
				return err
			}
			loc, err := blob.DirSink{Dir: outDir}.Put(cmd.Context(), b)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, loc)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(tabular.FormatCSV), "csv, xlsx or json")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory to write the template to")
	return cmd
}

func newReferenceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reference KIND",
		Short: "Print the accepted columns of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := core.ParseKind(args[0])
			if err != nil {
				return err
			}
			text, err := a.offlineService().FieldReference(kind)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, text)
			return nil
		},
	}
}
