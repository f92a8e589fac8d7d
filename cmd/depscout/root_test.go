package main

import (
	"os"
	"path/filepath"
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "depscout" {
			t.Errorf("expected use 'depscout', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty short and long description")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})

	t.Run("has config flag", func(t *testing.T) {
		t.Parallel()
		if cmd.PersistentFlags().Lookup("config") == nil {
			t.Error("expected config flag")
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{
			"study [package...]": false,
			"check [package...]": false,
			"history [package]":  false,
			"init":               false,
			"version":            false,
		}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Use]; ok {
				want[sub.Use] = true
			}
		}
		for use, found := range want {
			if !found {
				t.Errorf("expected %q subcommand", use)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		if err := loadEnvFile(filepath.Join(t.TempDir(), ".env")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("exports variables", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("DEPSCOUT_TEST_ENV_FILE=loaded\n"), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("DEPSCOUT_TEST_ENV_FILE", "")
		if err := os.Unsetenv("DEPSCOUT_TEST_ENV_FILE"); err != nil {
			t.Fatalf("failed to unset: %v", err)
		}

		if err := loadEnvFile(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("DEPSCOUT_TEST_ENV_FILE"); got != "loaded" {
			t.Errorf("expected loaded, got %q", got)
		}
	})

	t.Run("existing variables win", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("DEPSCOUT_TEST_ENV_KEEP=file\n"), 0600); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("DEPSCOUT_TEST_ENV_KEEP", "shell")

		if err := loadEnvFile(path); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := os.Getenv("DEPSCOUT_TEST_ENV_KEEP"); got != "shell" {
			t.Errorf("expected shell, got %q", got)
		}
	})
}
