package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"mediasort/internal/config"
	"mediasort/internal/destination"
	"mediasort/internal/pipeline"
)

type stageSummary struct {
	Stage             string  `json:"stage"`
	Handled           int     `json:"handled"`
	Unhandled         int     `json:"unhandled"`
	Failed            int     `json:"failed"`
	Abandoned         int     `json:"abandoned"`
	TotalSeconds      float64 `json:"total_seconds"`
	ProcessingSeconds float64 `json:"processing_seconds"`
}

type relocationSummary struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Bytes       int64  `json:"bytes"`
}

type duplicateSummary struct {
	Source      string `json:"source"`
	Existing    string `json:"existing"`
	Destination string `json:"destination,omitempty"`
	Identical   bool   `json:"identical"`
}

type runSummary struct {
	RunID          string              `json:"run_id"`
	SourceDir      string              `json:"source_dir"`
	DestinationDir string              `json:"destination_dir"`
	DryRun         bool                `json:"dry_run"`
	Move           bool                `json:"move"`
	Interrupted    bool                `json:"interrupted"`
	Error          string              `json:"error,omitempty"`
	ElapsedSeconds float64             `json:"elapsed_seconds"`
	Scanned        int                 `json:"scanned"`
	Relocated      int                 `json:"relocated"`
	Bytes          int64               `json:"bytes"`
	Outcomes       map[string]int      `json:"outcomes"`
	Stages         []stageSummary      `json:"stages"`
	Relocations    []relocationSummary `json:"relocations"`
	Duplicates     []duplicateSummary  `json:"duplicates"`
	Unhandled      []string            `json:"unhandled"`
	Failed         []string            `json:"failed"`
	PrunedDirs     []string            `json:"pruned_dirs"`
}

func newRunSummary(report *pipeline.Report, runErr error) runSummary {
	summary := runSummary{
		RunID:          report.RunID,
		SourceDir:      report.SourceDir,
		DestinationDir: report.DestinationDir,
		DryRun:         report.DryRun,
		Move:           report.Move,
		Interrupted:    report.Interrupted,
		ElapsedSeconds: report.Elapsed.Seconds(),
		Scanned:        report.Scanned(),
		Relocated:      report.Relocated(),
		Bytes:          report.Bytes,
		Outcomes:       make(map[string]int, len(report.Outcomes)),
		Stages:         make([]stageSummary, 0, len(report.Stages)),
		Relocations:    make([]relocationSummary, 0, len(report.Relocations)),
		Duplicates:     make([]duplicateSummary, 0, len(report.Duplicates)),
		Unhandled:      nonNil(report.Unhandled()),
		Failed:         nonNil(report.Failed()),
		PrunedDirs:     nonNil(report.PrunedDirs),
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	for outcome, count := range report.Outcomes {
		summary.Outcomes[outcome.String()] = count
	}
	for _, res := range report.Stages {
		summary.Stages = append(summary.Stages, stageSummary{
			Stage:             res.Stage,
			Handled:           res.Handled,
			Unhandled:         res.Unhandled,
			Failed:            res.Failed,
			Abandoned:         res.Abandoned,
			TotalSeconds:      res.Total.Seconds(),
			ProcessingSeconds: res.Processing.Seconds(),
		})
	}
	for _, rel := range report.Relocations {
		summary.Relocations = append(summary.Relocations, relocationSummary(rel))
	}
	for _, dup := range report.Duplicates {
		summary.Duplicates = append(summary.Duplicates, duplicateSummary(dup))
	}
	return summary
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func printRunSummary(out io.Writer, cfg *config.Config, report *pipeline.Report) {
	rows := make([][]string, 0, len(report.Stages))
	var handled, unhandled, failed int
	for _, res := range report.Stages {
		rows = append(rows, []string{
			res.Stage,
			strconv.Itoa(res.Handled),
			strconv.Itoa(res.Unhandled),
			strconv.Itoa(res.Failed),
			formatDuration(res.Processing),
			formatDuration(res.Total),
		})
		handled += res.Handled
		unhandled += res.Unhandled
		failed += res.Failed
	}
	fmt.Fprintln(out, renderTable(tableSpec{
		title:   "mediasort run " + shortID(report.RunID),
		headers: []string{"Stage", "Handled", "Unhandled", "Failed", "Processing", "Total"},
		rows:    rows,
		footer:  []string{"", strconv.Itoa(handled), strconv.Itoa(unhandled), strconv.Itoa(failed), "", formatDuration(report.Elapsed)},
		aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	}))

	verb := "Copied"
	if report.Move {
		verb = "Moved"
	}
	if report.DryRun {
		verb = "Would relocate"
	}
	fmt.Fprintf(out, "%s %d of %d files (%s)\n", verb, report.Relocated(), report.Scanned(), humanize.IBytes(uint64(report.Bytes)))
	fmt.Fprintf(out, "Quarantined: %d  Skipped (no date): %d  Duplicates: %d\n",
		report.Outcomes[destination.OutcomeQuarantined],
		report.Outcomes[destination.OutcomeSkippedNoDate],
		len(report.Duplicates))
	if abandoned := report.Abandoned(); abandoned > 0 {
		fmt.Fprintf(out, "Abandoned: %d queued files were not processed\n", abandoned)
	}
	if len(report.PrunedDirs) > 0 {
		fmt.Fprintf(out, "Pruned %d empty source directories\n", len(report.PrunedDirs))
	}
	if report.DryRun {
		fmt.Fprintln(out, "Dry run: no files were changed. Re-run with --dry-run=false to apply.")
	}

	if cfg.Report.ShowMoved && len(report.Relocations) > 0 {
		moved := make([][]string, 0, len(report.Relocations))
		for _, rel := range report.Relocations {
			moved = append(moved, []string{rel.Source, rel.Destination, humanize.IBytes(uint64(rel.Bytes))})
		}
		fmt.Fprintln(out, renderTable(tableSpec{
			title:   "Relocated",
			headers: []string{"From", "To", "Size"},
			rows:    moved,
			aligns:  []columnAlignment{alignLeft, alignLeft, alignRight},
		}))
	}
	if cfg.Report.ShowDuplicates && len(report.Duplicates) > 0 {
		dups := make([][]string, 0, len(report.Duplicates))
		for _, dup := range report.Duplicates {
			result := dup.Destination
			if result == "" {
				result = "skipped"
			}
			dups = append(dups, []string{dup.Source, dup.Existing, result, yesNo(dup.Identical)})
		}
		fmt.Fprintln(out, renderTable(tableSpec{
			title:   "Duplicates",
			headers: []string{"Source", "Existing", "Result", "Identical"},
			rows:    dups,
		}))
	}
	if cfg.Report.ShowUnhandled {
		if unhandledPaths := report.Unhandled(); len(unhandledPaths) > 0 {
			fmt.Fprintln(out, "Unhandled:")
			for _, path := range unhandledPaths {
				fmt.Fprintf(out, "  %s\n", path)
			}
		}
	}
	if failedPaths := report.Failed(); len(failedPaths) > 0 {
		fmt.Fprintln(out, "Failed:")
		for _, path := range failedPaths {
			fmt.Fprintf(out, "  %s\n", path)
		}
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(10 * time.Millisecond).String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
