// Package audit implements the append-only validation-decision trail: one
// JSON line per command, opened once at process startup and held for the
// process lifetime.
//
// Ported from original_source/src/aegish/audit.go's log_validation /
// log_warn_override pair; production writes to a root-owned directory,
// development falls back to a user-owned one, and a failure to open or
// write is logged once and otherwise ignored — audit logging is best-effort,
// never fatal.
package audit

import (
	"encoding/json"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"sync"
	"time"
)

const (
	ProductionLogDir = "/var/log/aegish"
	productionLog    = "audit.log"
	devLogDirName    = ".aegish"
	devLog           = "audit.log"
)

// Entry is one audit record. Field names and order are fixed by the
// external JSONL contract; do not rename without a compatibility plan.
type Entry struct {
	Timestamp  string  `json:"timestamp"`
	RequestID  string  `json:"request_id,omitempty"`
	User       string  `json:"user"`
	Command    string  `json:"command"`
	Action     string  `json:"action"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	Model      string  `json:"model"`
}

// Log writes audit entries to a single append-only file for the lifetime of
// the process.
type Log struct {
	mu        sync.Mutex
	file      *os.File
	available bool
	username  string
}

// Open resolves the audit-log path for the given mode (production uses
// ProductionLogDir, anything else falls back to ~/.aegish) and opens it for
// append, creating the development directory if needed. A failure to open
// the file is logged once here; the returned Log is still usable — every
// subsequent Record call becomes a silent no-op.
func Open(production bool) *Log {
	l := &Log{username: currentUsername()}

	var path string
	if production {
		path = filepath.Join(ProductionLogDir, productionLog)
		if info, err := os.Stat(ProductionLogDir); err != nil || !info.IsDir() {
			slog.Warn("audit log directory missing, audit logging unavailable", "dir", ProductionLogDir)
			return l
		}
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Warn("cannot resolve home directory, audit logging unavailable", "error", err)
			return l
		}
		dir := filepath.Join(home, devLogDirName)
		if err := os.MkdirAll(dir, 0o700); err != nil {
			slog.Warn("cannot create audit log directory, audit logging unavailable", "dir", dir, "error", err)
			return l
		}
		path = filepath.Join(dir, devLog)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		slog.Warn("cannot open audit log, audit logging unavailable", "path", path, "error", err)
		return l
	}

	l.file = f
	l.available = true
	return l
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// Record appends one validation decision. Source identifies which pipeline
// stage produced the decision ("prefilter", "resolver", "provider:<name>",
// "fail_mode", "empty", "length_limit"); model is the provider/model
// descriptor when a provider decided, empty for static decisions. requestID
// is the validator's correlation ID, shared with any resolver.LogEntry
// records produced for the same command, so a reviewer can line up this
// entry with the substitution-resolution trail that led to it.
func (l *Log) Record(requestID, command, action, reason string, confidence float64, source, model string) {
	l.write(Entry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RequestID:  requestID,
		User:       l.username,
		Command:    command,
		Action:     action,
		Reason:     reason,
		Confidence: confidence,
		Source:     source,
		Model:      model,
	})
}

// RecordWarnOverride logs an operator's explicit choice to proceed past a
// WARN decision, tagged per spec as "warn_overridden".
func (l *Log) RecordWarnOverride(requestID, command, originalReason string) {
	l.write(Entry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		RequestID:  requestID,
		User:       l.username,
		Command:    command,
		Action:     "warn_overridden",
		Reason:     originalReason,
		Confidence: 0,
		Source:     "user_override",
	})
}

func (l *Log) write(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.available {
		return
	}
	line, err := json.Marshal(e)
	if err != nil {
		slog.Warn("failed to encode audit entry", "error", err)
		return
	}
	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		slog.Warn("failed to write audit entry, audit logging unavailable", "error", err)
		l.available = false
	}
}

// Close releases the underlying file handle. Safe to call on a Log whose
// Open call failed to acquire a file.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
