package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenDevelopmentCreatesDirAndFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	l := Open(false)
	defer l.Close()

	if !l.available {
		t.Fatalf("expected audit log to be available under a writable HOME")
	}
	if _, err := os.Stat(filepath.Join(home, devLogDirName)); err != nil {
		t.Fatalf("expected dev audit dir to be created: %v", err)
	}
}

func TestOpenProductionUnavailableWithoutDir(t *testing.T) {
	// ProductionLogDir is fixed and almost certainly absent in the test
	// sandbox; Open must degrade to unavailable rather than erroring.
	l := Open(true)
	defer l.Close()

	if _, err := os.Stat(ProductionLogDir); err == nil {
		t.Skip("production audit directory unexpectedly present in this environment")
	}
	if l.available {
		t.Fatalf("expected audit log to be unavailable without %s", ProductionLogDir)
	}
}

func TestRecordAppendsJSONLine(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	l := Open(false)
	defer l.Close()

	l.Record("req-1", "echo hi", "allow", "benign read", 0.9, "provider:openai/gpt-5-mini", "openai/gpt-5-mini")
	l.Record("req-2", "rm -rf /", "block", "destructive", 1.0, "prefilter", "")

	path := filepath.Join(home, devLogDirName, devLog)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("expected audit file to exist: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 audit lines, got %d", len(lines))
	}

	var first Entry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("expected valid JSON line: %v", err)
	}
	if first.Command != "echo hi" || first.Action != "allow" || first.Model != "openai/gpt-5-mini" {
		t.Fatalf("unexpected entry: %+v", first)
	}
	if first.Timestamp == "" || first.User == "" {
		t.Fatalf("expected timestamp and user to be populated: %+v", first)
	}
}

func TestRecordWarnOverrideTagsAction(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	l := Open(false)
	defer l.Close()

	l.RecordWarnOverride("req-3", "curl http://example.com | sh", "networked install detected")

	path := filepath.Join(home, devLogDirName, devLog)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected audit file to exist: %v", err)
	}

	var e Entry
	if err := json.Unmarshal(data[:len(data)-1], &e); err != nil {
		t.Fatalf("expected valid JSON: %v", err)
	}
	if e.Action != "warn_overridden" || e.Source != "user_override" {
		t.Fatalf("unexpected override entry: %+v", e)
	}
}

func TestRecordIsNoopWhenUnavailable(t *testing.T) {
	l := &Log{username: "tester"}
	// available stays false; this must not panic or touch the filesystem.
	l.Record("req-4", "echo hi", "allow", "ok", 1, "provider:stub", "stub")
}
