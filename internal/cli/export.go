package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ClawPulse/ClawPulse/internal/analytics"
	"github.com/ClawPulse/ClawPulse/internal/config"
	"github.com/ClawPulse/ClawPulse/internal/export"
	"github.com/ClawPulse/ClawPulse/internal/store"
)

var (
	exportFormat string
	exportOut    string
	exportStart  string
	exportEnd    string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export aggregated analytics to JSON or CSV",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", export.FormatJSON, "output format (json or csv)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&exportStart, "start", "", "window start (YYYY-MM-DD or RFC3339)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "window end (YYYY-MM-DD or RFC3339)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 50, "max commands and error patterns")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}
	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer st.Close()

	w, err := parseExportWindow(exportStart, exportEnd)
	if err != nil {
		return err
	}

	engine := analytics.New(st)
	report := export.Report{}
	if report.Summary, err = engine.Summary(w); err != nil {
		return err
	}
	if report.Commands, err = engine.PopularCommands(w, exportLimit); err != nil {
		return err
	}
	if report.Errors, err = engine.ErrorPatterns("", w, exportLimit); err != nil {
		return err
	}

	data, err := export.Format(&report, exportFormat)
	if err != nil {
		return err
	}

	if exportOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(exportOut, data, 0644); err != nil {
		return err
	}
	fmt.Printf("Wrote %d bytes to %s\n", len(data), exportOut)
	return nil
}

func parseExportWindow(start, end string) (analytics.Window, error) {
	var w analytics.Window
	parse := func(s string) (int64, error) {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t.UnixMilli(), nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return 0, fmt.Errorf("invalid date %q", s)
		}
		return t.UnixMilli(), nil
	}
	var err error
	if start != "" {
		if w.Start, err = parse(start); err != nil {
			return w, err
		}
	}
	if end != "" {
		if w.End, err = parse(end); err != nil {
			return w, err
		}
	}
	return w, nil
}
