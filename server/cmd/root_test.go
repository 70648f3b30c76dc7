package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"--help"})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "pairrelay") {
		t.Errorf("Expected output to contain 'pairrelay', got: %s", output)
	}
	if !strings.Contains(output, "start") {
		t.Errorf("Expected output to contain 'start' command, got: %s", output)
	}

	rootCmd.SetArgs(nil)
}

func TestStartCommand_RejectsInvalidConfig(t *testing.T) {
	rootCmd.SetArgs([]string{"start", "--transport", "udp"})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)

	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("Expected error for unsupported transport")
	}
	if !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("Expected validation error, got: %v", err)
	}

	_ = startCmd.Flags().Set("transport", "tcp")
	rootCmd.SetArgs(nil)
}
