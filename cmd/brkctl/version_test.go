package main

import (
	"encoding/json"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	resetFlags(t)

	output, err := captureOutput(t, runVersion)
	if err != nil {
		t.Fatalf("runVersion() error = %v", err)
	}
	assertContains(t, output, []string{"brkctl " + version, "commit:", "header:   24 bytes"})

	jsonOut = true
	output, err = captureOutput(t, runVersion)
	if err != nil {
		t.Fatalf("runVersion() error = %v", err)
	}
	var info BuildInfo
	if err := json.Unmarshal([]byte(output), &info); err != nil {
		t.Fatalf("invalid JSON output: %v\nOutput: %s", err, output)
	}
	if info.Version != version || info.HeaderSize != 24 {
		t.Errorf("unexpected build info: %+v", info)
	}
}

func TestVersionFlagMatchesCommand(t *testing.T) {
	if rootCmd.Version != version {
		t.Errorf("--version reports %q, version command reports %q", rootCmd.Version, version)
	}
}
