package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mediasort/internal/testsupport"
)

var captured = time.Date(2020, 2, 3, 11, 22, 44, 0, time.UTC)

func TestRunDefaultsToDryRun(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.sourceDir, "a.jpg"), testsupport.JPEGWithCaptureTime(captured, "a"), time.Time{})

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Would relocate 1 of 1 files")
	requireContains(t, out, "Dry run: no files were changed")
	if _, err := os.Stat(env.libraryDir); !os.IsNotExist(err) {
		t.Fatalf("expected library untouched, stat err=%v", err)
	}
}

func TestRunJSONSummary(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.sourceDir, "a.jpg"), testsupport.JPEGWithCaptureTime(captured, "a"), time.Time{})
	testsupport.WriteFile(t, filepath.Join(env.sourceDir, "readme.txt"), []byte("hi"), time.Time{})

	out, _, err := runCLI(t, []string{"run", "--json", "--dry-run=false", "--move"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var summary runSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, out)
	}
	want := filepath.Join(env.libraryDir, "2020", "2020_02", "20200203_112244.jpg")
	if summary.DryRun || !summary.Move || summary.Relocated != 1 || summary.Relocations[0].Destination != want {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summary.Unhandled) != 1 || filepath.Base(summary.Unhandled[0]) != "readme.txt" {
		t.Fatalf("unexpected unhandled %v", summary.Unhandled)
	}
	if len(summary.Stages) != 4 || summary.RunID == "" {
		t.Fatalf("unexpected stages %+v", summary.Stages)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected moved file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.sourceDir, "a.jpg")); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, stat err=%v", err)
	}
}

func TestRunFlagsOverrideConfigPaths(t *testing.T) {
	env := setupCLITestEnv(t)
	writeTestConfig(t, env.configPath, "[logging]\nlevel = \"error\"\n")
	src := filepath.Join(env.baseDir, "other-source")
	dest := filepath.Join(env.baseDir, "other-library")
	testsupport.WriteFile(t, filepath.Join(src, "clip.mp4"), testsupport.MP4WithCreationTime(captured), time.Time{})

	out, _, err := runCLI(t, []string{"run", "--json", "--source", src, "--dest", dest, "--dry-run=false"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var summary runSummary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.SourceDir != src || summary.DestinationDir != dest {
		t.Fatalf("flags not applied: %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(dest, "2020", "2020_02", "20200203_112244.mp4")); err != nil {
		t.Fatalf("expected copied clip: %v", err)
	}
}

func TestRunRequiresDirectories(t *testing.T) {
	env := setupCLITestEnv(t)
	writeTestConfig(t, env.configPath, "")

	if _, _, err := runCLI(t, []string{"run"}, env.configPath); err == nil {
		t.Fatal("expected missing source and destination to fail")
	}
}
