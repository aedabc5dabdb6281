package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	sourceDir  string
	libraryDir string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("MEDIASORT_SOURCE_DIR", "")
	t.Setenv("MEDIASORT_DESTINATION_DIR", "")

	env := &cliTestEnv{
		baseDir:    base,
		sourceDir:  filepath.Join(base, "source"),
		libraryDir: filepath.Join(base, "library"),
		configPath: filepath.Join(base, "config.toml"),
	}
	if err := os.MkdirAll(env.sourceDir, 0o755); err != nil {
		t.Fatalf("mkdir source: %v", err)
	}
	writeTestConfig(t, env.configPath, fmt.Sprintf(
		"[paths]\nsource_dir = %q\ndestination_dir = %q\nlog_dir = %q\n\n[logging]\nlevel = \"error\"\n",
		env.sourceDir, env.libraryDir, filepath.Join(base, "logs"),
	))
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
