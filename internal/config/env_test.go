package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseIntEnv(t *testing.T) {
	t.Setenv("AGENTKIT_TEST_INT", "42")
	if got := ParseIntEnv("AGENTKIT_TEST_INT", 7); got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
	t.Setenv("AGENTKIT_TEST_INT", "not-a-number")
	if got := ParseIntEnv("AGENTKIT_TEST_INT", 7); got != 7 {
		t.Fatalf("got %d, want fallback 7", got)
	}
	if got := ParseIntEnv("AGENTKIT_TEST_UNSET", 7); got != 7 {
		t.Fatalf("got %d, want fallback 7", got)
	}
}

func TestParseBoolString(t *testing.T) {
	for _, raw := range []string{"1", "true", "YES", "On"} {
		if !ParseBoolString(raw, false) {
			t.Fatalf("%q should parse true", raw)
		}
	}
	for _, raw := range []string{"0", "false", "No", "OFF"} {
		if ParseBoolString(raw, true) {
			t.Fatalf("%q should parse false", raw)
		}
	}
	if !ParseBoolString("maybe", true) {
		t.Fatal("unparsable value should keep the fallback")
	}
}

func TestStateDir(t *testing.T) {
	t.Setenv("AGENTKIT_STATE_DIR", "")
	if got := StateDir(); got != "./.agentkit" {
		t.Fatalf("got %q", got)
	}
	t.Setenv("AGENTKIT_STATE_DIR", "/tmp/proj/.agentkit")
	if got := StateDir(); got != "/tmp/proj/.agentkit" {
		t.Fatalf("got %q", got)
	}
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotenv(dir); err != nil {
		t.Fatalf("missing .env should not error: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AGENTKIT_TEST_DOTENV=loaded\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("AGENTKIT_TEST_DOTENV", "")
	os.Unsetenv("AGENTKIT_TEST_DOTENV")
	if err := LoadDotenv(dir); err != nil {
		t.Fatalf("load .env: %v", err)
	}
	if got := os.Getenv("AGENTKIT_TEST_DOTENV"); got != "loaded" {
		t.Fatalf("AGENTKIT_TEST_DOTENV = %q", got)
	}
}
