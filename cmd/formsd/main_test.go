package main

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("FORMS_CONFIG")
	defer os.Setenv("FORMS_CONFIG", originalEnv)

	os.Setenv("FORMS_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestGetConfigPath verifies the environment variable override.
func TestGetConfigPath(t *testing.T) {
	originalEnv := os.Getenv("FORMS_CONFIG")
	defer os.Setenv("FORMS_CONFIG", originalEnv)

	os.Setenv("FORMS_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	os.Setenv("FORMS_CONFIG", "/etc/forms/config.yaml")
	if got := getConfigPath(); got != "/etc/forms/config.yaml" {
		t.Errorf("getConfigPath() = %q, want override", got)
	}
}
