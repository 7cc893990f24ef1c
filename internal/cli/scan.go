package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scorewatch/scorewatch/internal/config"
	"github.com/scorewatch/scorewatch/internal/identity"
	"github.com/scorewatch/scorewatch/internal/logging"
	"github.com/scorewatch/scorewatch/internal/mapper"
	"github.com/scorewatch/scorewatch/internal/orchestrate"
)

type scanOptions struct {
	format string
}

func newScanCommand() *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the data directory once and exit",
		Long: `Scan lists the data directory, classifies every supported workbook
filename, rebuilds the unit index, and rewrites the manifest and
mapping report. It prints a summary of what it found.

This is the one-shot equivalent of what the serve command does on
every file change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text, json, yaml")

	return cmd
}

// scanSummary is the structured output of the scan command.
type scanSummary struct {
	TotalFiles   int     `json:"totalFiles" yaml:"totalFiles"`
	DetailFiles  int     `json:"detailFiles" yaml:"detailFiles"`
	Units        int     `json:"units" yaml:"units"`
	OverallFile  string  `json:"overallFile,omitempty" yaml:"overallFile,omitempty"`
	Unrecognized int     `json:"unrecognized" yaml:"unrecognized"`
	DurationSecs float64 `json:"durationSeconds" yaml:"durationSeconds"`
}

func runScan(ctx context.Context, w io.Writer, opts *scanOptions) error {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	parser := identity.NewParser(cfg.Extension, "", cfg.SummaryMarker)
	scanner := mapper.NewScanner(cfg.DataDir, parser, logger)
	orch := orchestrate.New(scanner, nil, logger)

	snap, err := orch.RunOnce(ctx, orchestrate.Request{Source: orchestrate.SourceManual})
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	result := snap.Result

	summary := scanSummary{
		TotalFiles:   result.Report.TotalFiles,
		DetailFiles:  result.Index.DetailCount(),
		Units:        result.Index.UnitCount(),
		Unrecognized: result.Unrecognized,
		DurationSecs: result.Duration.Seconds(),
	}

	if overall := result.Index.Overall(); overall != nil {
		summary.OverallFile = overall.Filename
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(summary)

	case "yaml":
		data, err := yaml.Marshal(summary)
		if err != nil {
			return err
		}

		_, err = w.Write(data)

		return err

	case "text":
		fmt.Fprintf(w, "Scanned %s\n", cfg.DataDir)
		fmt.Fprintf(w, "  total files:  %d\n", summary.TotalFiles)
		fmt.Fprintf(w, "  detail files: %d (%d units)\n", summary.DetailFiles, summary.Units)

		if summary.OverallFile != "" {
			fmt.Fprintf(w, "  overall:      %s\n", summary.OverallFile)
		} else {
			fmt.Fprintf(w, "  overall:      (none)\n")
		}

		if summary.Unrecognized > 0 {
			fmt.Fprintf(w, "  unrecognized: %d\n", summary.Unrecognized)
		}

		fmt.Fprintf(w, "  wrote %s and %s\n", mapper.ManifestFilename, mapper.ReportFilename)

		return nil

	default:
		return &ExitError{Code: 2, Err: fmt.Errorf("unknown format %q: expected text, json, yaml", opts.format)}
	}
}
