package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"finitefield.org/storefront-widgets/internal/widget"
)

type validationReport struct {
	ID     string         `json:"id"`
	Kind   widget.Kind    `json:"kind"`
	Issues []widget.Issue `json:"issues"`
}

func newValidateCmd() *cobra.Command {
	var format string
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a widget store file",
		Long: `Decode every widget in the store file and report fields that fell back to
their defaults. Structural errors (bad YAML, unknown kinds, duplicate ids)
always fail; field issues only fail with --strict.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			widgets, err := widget.Parse(data)
			if err != nil {
				return err
			}
			reports := make([]validationReport, 0, len(widgets))
			issues := 0
			for _, w := range widgets {
				reports = append(reports, validationReport{ID: w.ID, Kind: w.Kind, Issues: w.Issues})
				issues += len(w.Issues)
			}
			if err := writeReports(cmd.OutOrStdout(), format, reports); err != nil {
				return err
			}
			if strict && issues > 0 {
				return fmt.Errorf("%d field issue(s) found", issues)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, json)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any field falls back to its default")
	return cmd
}

func writeReports(out io.Writer, format string, reports []validationReport) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case "text", "":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, r := range reports {
			if len(r.Issues) == 0 {
				fmt.Fprintf(tw, "%s\t%s\tok\n", r.ID, r.Kind)
				continue
			}
			for _, is := range r.Issues {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Kind, is)
			}
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func newKindsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds [kind...]",
		Short: "List widget kinds and their config fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := widget.Kinds()
			if len(args) > 0 {
				kinds = make([]widget.Kind, 0, len(args))
				for _, a := range args {
					kinds = append(kinds, widget.Kind(a))
				}
			}
			out := cmd.OutOrStdout()
			for _, k := range kinds {
				schema, ok := widget.SchemaFor(k)
				if !ok {
					return fmt.Errorf("%w %q", widget.ErrUnknownKind, k)
				}
				fmt.Fprintf(out, "%s\n", k)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, line := range schema.Describe() {
					fmt.Fprintf(tw, "  %s\n", line)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
