package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scorewatch/scorewatch/internal/config"
	"github.com/scorewatch/scorewatch/internal/identity"
	"github.com/scorewatch/scorewatch/internal/workbook"
)

type inspectOptions struct {
	format  string
	samples int
}

func newInspectCommand() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the structure of a single workbook",
		Long: `Inspect parses one xlsx workbook and prints its structure: how the
filename was classified, the sheets it contains, their columns, row
counts, and a few sample rows.

Useful for checking why a result file does or does not show up on the
dashboard.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text, json, yaml")
	cmd.Flags().IntVar(&opts.samples, "samples", workbook.SampleRows, "sample rows to print per sheet")

	return cmd
}

// inspectSheet is the structured view of one worksheet.
type inspectSheet struct {
	Name    string              `json:"name" yaml:"name"`
	Columns []string            `json:"columns" yaml:"columns"`
	Rows    int                 `json:"rows" yaml:"rows"`
	Samples []map[string]string `json:"samples,omitempty" yaml:"samples,omitempty"`
}

// inspectReport is the structured output of the inspect command.
type inspectReport struct {
	Filename string         `json:"filename" yaml:"filename"`
	Kind     string         `json:"kind" yaml:"kind"`
	UnitName string         `json:"unitName,omitempty" yaml:"unitName,omitempty"`
	Site     string         `json:"site,omitempty" yaml:"site,omitempty"`
	Status   string         `json:"status,omitempty" yaml:"status,omitempty"`
	Code     string         `json:"code,omitempty" yaml:"code,omitempty"`
	Sheets   []inspectSheet `json:"sheets" yaml:"sheets"`
}

func runInspect(ctx context.Context, w io.Writer, path string, opts *inspectOptions) error {
	cfg := config.FromContext(ctx)

	wb, err := workbook.Read(path)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	parser := identity.NewParser(cfg.Extension, "", cfg.SummaryMarker)

	report := inspectReport{
		Filename: filepath.Base(path),
		Kind:     "unrecognized",
	}

	if id := parser.Parse(report.Filename); id != nil {
		report.Kind = string(id.Kind)
		report.UnitName = id.UnitName
		report.Site = id.Site
		report.Status = id.Status
		report.Code = id.Code
	}

	for _, sheet := range wb.Sheets {
		report.Sheets = append(report.Sheets, inspectSheet{
			Name:    sheet.Name,
			Columns: sheet.Columns,
			Rows:    sheet.RowCount(),
			Samples: sheet.Sample(opts.samples),
		})
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(report)

	case "yaml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return err
		}

		_, err = w.Write(data)

		return err

	case "text":
		renderInspectText(w, &report)

		return nil

	default:
		return &ExitError{Code: 2, Err: fmt.Errorf("unknown format %q: expected text, json, yaml", opts.format)}
	}
}

func renderInspectText(w io.Writer, report *inspectReport) {
	fmt.Fprintf(w, "File: %s\n", report.Filename)
	fmt.Fprintf(w, "Kind: %s\n", report.Kind)

	if report.UnitName != "" {
		fmt.Fprintf(w, "Unit: %s (site %s, status %s, code %s)\n",
			report.UnitName, report.Site, report.Status, report.Code)
	}

	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SHEET\tROWS\tCOLUMNS")

	for _, sheet := range report.Sheets {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", sheet.Name, sheet.Rows, strings.Join(sheet.Columns, ", "))
	}

	tw.Flush()

	for _, sheet := range report.Sheets {
		if len(sheet.Samples) == 0 {
			continue
		}

		fmt.Fprintf(w, "\nSample rows from %s:\n", sheet.Name)

		for _, row := range sheet.Samples {
			parts := make([]string, 0, len(sheet.Columns))
			for _, col := range sheet.Columns {
				parts = append(parts, fmt.Sprintf("%s=%s", col, row[col]))
			}

			fmt.Fprintf(w, "  %s\n", strings.Join(parts, "  "))
		}
	}
}
