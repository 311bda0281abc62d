package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// executeCmd runs the root command with args and returns captured stdout,
// captured stderr and any error.
func executeCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "sites.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func TestRunValidate_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
timeout: 10s
retry:
  max_retries: 3
expectations:
  - url: https://vaccines.example.com
    name: ShopRite
    marker: Vaccine appointment schedule is FULL
  - url: https://clinic.example.com/book
    marker: [Book now, Schedule]
    should_exist: true
    selector: "#status"
`)

	output, _, err := executeCmd(t, "validate", "-c", configPath)
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}

	expectedPhrases := []string{
		"Config is valid!",
		"Timeout:      10s",
		"Retries:      3 (backoff factor 1)",
		"Cooldown:     disabled",
		"Expectations: 2",
		"ShopRite (https://vaccines.example.com): 1 marker(s) absent [raw]",
		"clinic.example.com (https://clinic.example.com/book): 2 marker(s) present [html]",
	}

	for _, phrase := range expectedPhrases {
		if !strings.Contains(output, phrase) {
			t.Errorf("output missing %q\nGot: %s", phrase, output)
		}
	}
}

func TestRunValidate_BuiltInRegistry(t *testing.T) {
	output, _, err := executeCmd(t, "validate", "-c", "")
	if err != nil {
		t.Fatalf("validate command error = %v", err)
	}
	if !strings.Contains(output, "Expectations: 10") {
		t.Errorf("output missing built-in registry size\nGot: %s", output)
	}
}

func TestRunValidate_InvalidConfig(t *testing.T) {
	configPath := writeConfig(t, `
expectations:
  - url: https://vaccines.example.com
`)

	_, _, err := executeCmd(t, "validate", "-c", configPath)
	if err == nil {
		t.Fatal("validate command expected error for invalid config, got nil")
	}

	if !strings.Contains(err.Error(), "marker is required") {
		t.Errorf("error should mention 'marker is required', got: %v", err)
	}
}

func TestRunValidate_MissingFile(t *testing.T) {
	_, _, err := executeCmd(t, "validate", "-c", "/nonexistent/path/sites.yaml")
	if err == nil {
		t.Fatal("validate command expected error for missing file, got nil")
	}

	if !strings.Contains(err.Error(), "failed to read") {
		t.Errorf("error should mention 'failed to read', got: %v", err)
	}
}

func TestVersionCmd(t *testing.T) {
	output, _, err := executeCmd(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(output, "slotwatch dev") {
		t.Errorf("output = %q, want version line", output)
	}
}
