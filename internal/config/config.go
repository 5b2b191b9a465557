// Package config loads aegish's two-tier configuration: security-critical
// keys gated by operational mode and file ownership, operational keys read
// from the environment in either mode.
//
// Ported from the historical Python implementation's config module, which
// enforced the same production/development split against a root-owned
// /etc/aegish/config file.
package config

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// Mode is the operational mode: production enforces the integrity gate,
// development relaxes it for local iteration.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// FailMode governs the decision when every provider in the chain fails.
type FailMode string

const (
	FailSafe FailMode = "safe" // BLOCK on exhaustion
	FailOpen FailMode = "open" // WARN on exhaustion
)

// VarCmdAction is the configured response to static-pre-filter detections.
type VarCmdAction string

const (
	VarCmdBlock VarCmdAction = "block"
	VarCmdWarn  VarCmdAction = "warn"
)

// Role adjusts the system prompt sent to providers.
type Role string

const (
	RoleDefault    Role = "default"
	RoleSysadmin   Role = "sysadmin"
	RoleRestricted Role = "restricted"
)

// ConfigFilePath is the production configuration file location.
const ConfigFilePath = "/etc/aegish/config"

// DefaultSandboxerPath is where the Landlock-preload shared library lives
// in production; in production this is never overridden by configuration.
const DefaultSandboxerPath = "/opt/aegish/lib/landlock_sandboxer.so"

// ShellPath is the execution delegate's fixed path on this platform.
const ShellPath = "/bin/bash"

// securityCriticalKeys mirrors the original's SECURITY_CRITICAL_KEYS: in
// production mode these are read only from the config file, never the
// environment (AEGISH_MODE is special-cased in resolveMode and getSecurity).
var securityCriticalKeys = map[string]bool{
	"AEGISH_FAIL_MODE":       true,
	"AEGISH_ALLOWED_PROVIDERS": true,
	"AEGISH_MODE":             true,
	"AEGISH_ROLE":             true,
	"AEGISH_VAR_CMD_ACTION":   true,
	"AEGISH_SANDBOXER_HASH":   true,
	"AEGISH_PRIMARY_MODEL":    true,
	"AEGISH_FALLBACK_MODELS":  true,
	"AEGISH_BASH_HASH":        true,
	"AEGISH_SKIP_BASH_HASH":   true,
}

// DefaultPrimaryModel and DefaultFallbackModels are the secure defaults used
// when production mode cannot read the config file for these keys.
var (
	DefaultPrimaryModel   = "openai/gpt-5-mini"
	DefaultFallbackModels = []string{
		"anthropic/claude-haiku-4-5-20251001",
		"anthropic/claude-sonnet-4-5-20250929",
		"gemini/gemini-3-flash-preview",
	}
	DefaultAllowedProviders = []string{
		"openai", "anthropic", "groq", "together_ai", "ollama", "gemini", "featherless_ai",
	}
)

// providerEnvVars maps a provider id to the environment variable name(s)
// that carry its credential, tried in order.
var providerEnvVars = map[string][]string{
	"openai":        {"OPENAI_API_KEY"},
	"anthropic":     {"ANTHROPIC_API_KEY"},
	"groq":          {"GROQ_API_KEY"},
	"together_ai":   {"TOGETHERAI_API_KEY"},
	"gemini":        {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"featherless_ai": {"FEATHERLESS_AI_API_KEY"},
}

// localProviders run without a credential.
var localProviders = map[string]bool{"ollama": true}

// ErrConfig wraps a recoverable configuration-loading failure.
type ErrConfig struct{ Msg string }

func (e *ErrConfig) Error() string { return e.Msg }

// ErrIntegrity wraps a fatal-at-startup integrity check failure.
type ErrIntegrity struct{ Msg string }

func (e *ErrIntegrity) Error() string { return e.Msg }

// Config is the loaded, immutable-after-construction configuration. A second
// load replaces the whole value via ReplaceFrom rather than mutating fields
// in place, so readers holding a snapshot are never torn.
type Config struct {
	mu sync.RWMutex

	mode               Mode
	failMode           FailMode
	allowedProviders   []string
	role               Role
	varCmdAction       VarCmdAction
	sandboxerHash      string
	primaryModel       string
	fallbackModels     []string
	bashHash           string
	skipBashHash       bool

	llmTimeoutSeconds     int
	maxQueriesPerMinute   int
	filterSensitiveVars   bool
	maxCommandLength      int
	resolverMaxDepth      int
	resolverTimeoutSecond int

	fileKV map[string]string
	log    *slog.Logger
}

// New constructs a Config by loading the config file (if present and, in
// production mode, correctly owned) and layering environment overrides per
// the two-tier resolution rule.
func New(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "config")

	if path == "" {
		path = ConfigFilePath
	}

	fileKV, err := loadConfigFile(path, logger)
	if err != nil {
		return nil, err
	}

	c := &Config{
		fileKV:                fileKV,
		log:                   logger,
		llmTimeoutSeconds:     30,
		maxQueriesPerMinute:   30,
		maxCommandLength:      4096,
		resolverMaxDepth:      2,
		resolverTimeoutSecond: 3,
	}

	c.mode = c.resolveMode()
	c.failMode = c.resolveFailMode()
	c.role = c.resolveRole()
	c.varCmdAction = c.resolveVarCmdAction()
	c.allowedProviders = c.resolveAllowedProviders()
	c.primaryModel = c.resolveSecurityString("AEGISH_PRIMARY_MODEL", DefaultPrimaryModel)
	c.fallbackModels = c.resolveFallbackModels()
	c.bashHash = c.resolveSecurityString("AEGISH_BASH_HASH", "")
	c.sandboxerHash = c.resolveSecurityString("AEGISH_SANDBOXER_HASH", "")
	c.skipBashHash = strings.EqualFold(c.getSecurity("AEGISH_SKIP_BASH_HASH", ""), "true")

	c.llmTimeoutSeconds = c.envInt("AEGISH_LLM_TIMEOUT", c.llmTimeoutSeconds)
	c.maxQueriesPerMinute = c.envInt("AEGISH_MAX_QUERIES_PER_MINUTE", c.maxQueriesPerMinute)
	c.filterSensitiveVars = strings.EqualFold(os.Getenv("AEGISH_FILTER_SENSITIVE_VARS"), "true")

	return c, nil
}

// ReplaceFrom atomically swaps this Config's contents with other's,
// matching the teacher's Config.ReplaceFrom atomic-swap idiom so holders of
// a *Config never observe a half-updated value.
func (c *Config) ReplaceFrom(other *Config) {
	c.mu.Lock()
	other.mu.RLock()
	defer c.mu.Unlock()
	defer other.mu.RUnlock()

	c.mode = other.mode
	c.failMode = other.failMode
	c.allowedProviders = other.allowedProviders
	c.role = other.role
	c.varCmdAction = other.varCmdAction
	c.sandboxerHash = other.sandboxerHash
	c.primaryModel = other.primaryModel
	c.fallbackModels = other.fallbackModels
	c.bashHash = other.bashHash
	c.skipBashHash = other.skipBashHash
	c.llmTimeoutSeconds = other.llmTimeoutSeconds
	c.maxQueriesPerMinute = other.maxQueriesPerMinute
	c.filterSensitiveVars = other.filterSensitiveVars
	c.maxCommandLength = other.maxCommandLength
	c.resolverMaxDepth = other.resolverMaxDepth
	c.resolverTimeoutSecond = other.resolverTimeoutSecond
	c.fileKV = other.fileKV
}

func (c *Config) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *Config) IsProduction() bool { return c.Mode() == ModeProduction }

func (c *Config) FailMode() FailMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failMode
}

func (c *Config) Role() Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

func (c *Config) VarCmdAction() VarCmdAction {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.varCmdAction
}

func (c *Config) AllowedProviders() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.allowedProviders))
	copy(out, c.allowedProviders)
	return out
}

func (c *Config) IsProviderAllowed(provider string) bool {
	for _, p := range c.AllowedProviders() {
		if strings.EqualFold(p, provider) {
			return true
		}
	}
	return false
}

func (c *Config) PrimaryModel() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.primaryModel
}

func (c *Config) FallbackModels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.fallbackModels))
	copy(out, c.fallbackModels)
	return out
}

// ModelChain returns the primary model followed by fallbacks, in order.
func (c *Config) ModelChain() []string {
	return append([]string{c.PrimaryModel()}, c.FallbackModels()...)
}

func (c *Config) LLMTimeout() int             { return c.llmTimeoutSeconds }
func (c *Config) MaxQueriesPerMinute() int    { return c.maxQueriesPerMinute }
func (c *Config) FilterSensitiveVars() bool   { return c.filterSensitiveVars }
func (c *Config) MaxCommandLength() int       { return c.maxCommandLength }
func (c *Config) ResolverMaxDepth() int       { return c.resolverMaxDepth }
func (c *Config) ResolverTimeoutSeconds() int { return c.resolverTimeoutSecond }
func (c *Config) SkipBashHash() bool          { return c.skipBashHash }

// LandlockAllowPaths and LandlockDenyPaths name supplemental doublestar
// path patterns layered onto the Landlock-preload library's baseline
// ruleset (see internal/sandbox.PathRuleSet). Operational, not security
// critical: loosening or tightening them widens or narrows what the
// sandboxed shell can touch, but never bypasses the integrity gate on the
// shell binary or the preload library itself.
func (c *Config) LandlockAllowPaths() []string { return splitCSV(os.Getenv("AEGISH_LANDLOCK_ALLOW_PATHS")) }
func (c *Config) LandlockDenyPaths() []string  { return splitCSV(os.Getenv("AEGISH_LANDLOCK_DENY_PATHS")) }

// ShellPath returns the execution delegate's fixed path on this platform.
func (c *Config) ShellPath() string { return ShellPath }

// SandboxerPath returns the path to the Landlock-preload library: hardcoded
// in production, environment-overridable in development.
func (c *Config) SandboxerPath() string {
	if c.IsProduction() {
		return DefaultSandboxerPath
	}
	if raw := strings.TrimSpace(os.Getenv("AEGISH_SANDBOXER_PATH")); raw != "" {
		return raw
	}
	return DefaultSandboxerPath
}

// APIKey returns the credential for provider, or "" if unset. Credential
// variables are read from the environment regardless of mode (spec.md §6:
// "credential-only variables are not a security-critical configuration key").
func (c *Config) APIKey(provider string) string {
	provider = strings.ToLower(provider)
	if localProviders[provider] {
		return "local"
	}
	for _, name := range providerEnvVars[provider] {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// ValidateCredentials confirms at least one allowed provider has a usable
// credential. Ported from original_source/src/aegish/main.py's
// validate_credentials() pre-flight check.
func (c *Config) ValidateCredentials() (bool, string) {
	var missing []string
	for _, p := range c.AllowedProviders() {
		if c.APIKey(p) != "" {
			return true, ""
		}
		missing = append(missing, p)
	}
	return false, fmt.Sprintf(
		"no credentials found for any allowed provider (%s); set one of: %s",
		strings.Join(missing, ", "), providerEnvVarsHint(missing),
	)
}

func providerEnvVarsHint(providers []string) string {
	var names []string
	for _, p := range providers {
		names = append(names, providerEnvVars[p]...)
	}
	return strings.Join(names, ", ")
}

// ValidateShellBinary verifies /bin/bash exists, is executable, and — in
// production, unless SkipBashHash is set — matches the configured SHA-256.
func (c *Config) ValidateShellBinary() (bool, string) {
	return c.validateBinaryHash(ShellPath, c.bashHash, "AEGISH_BASH_HASH", c.skipBashHash)
}

// ValidateSandboxLibrary verifies the Landlock-preload library exists and —
// in production — matches its configured SHA-256. Never bypassable.
func (c *Config) ValidateSandboxLibrary() (bool, string) {
	return c.validateBinaryHash(c.SandboxerPath(), c.sandboxerHash, "AEGISH_SANDBOXER_HASH", false)
}

func (c *Config) validateBinaryHash(path, expectedHash, keyName string, skippable bool) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Sprintf("%s not found: %v", path, err)
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return false, fmt.Sprintf("%s is not executable", path)
	}

	if !c.IsProduction() {
		return true, fmt.Sprintf("%s verified (development mode, hash check skipped)", path)
	}
	if skippable {
		return true, fmt.Sprintf("%s hash check skipped via %s", path, "AEGISH_SKIP_BASH_HASH")
	}
	if expectedHash == "" {
		return false, fmt.Sprintf(
			"no hash configured for %s in %s; set %s to the output of computing its SHA-256",
			path, ConfigFilePath, keyName,
		)
	}

	actual, err := computeFileSHA256(path)
	if err != nil {
		return false, fmt.Sprintf("cannot read %s for hash verification: %v", path, err)
	}
	if actual != expectedHash {
		return false, fmt.Sprintf(
			"%s hash mismatch.\n"+
				"  Expected: %s\n"+
				"  Actual:   %s\n"+
				"Step 1 — verify the binary is a legitimate update before trusting it.\n"+
				"Step 2 — only after verification, update the stored hash:\n"+
				"  sudo sed -i 's/^%s=.*/%s=%s/' %s",
			path, expectedHash, actual, keyName, keyName, actual, ConfigFilePath,
		)
	}
	return true, fmt.Sprintf("%s verified at %s", filepath.Base(path), path)
}

func computeFileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// --- bootstrap / two-tier resolution -------------------------------------

func (c *Config) resolveMode() Mode {
	if raw, ok := c.fileKV["AEGISH_MODE"]; ok {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case string(ModeProduction):
			return ModeProduction
		case string(ModeDevelopment):
			return ModeDevelopment
		}
	}
	if raw := strings.ToLower(strings.TrimSpace(os.Getenv("AEGISH_MODE"))); raw != "" {
		if raw == string(ModeProduction) {
			return ModeProduction
		}
		return ModeDevelopment
	}
	return ModeDevelopment
}

// getSecurity implements the original's _get_security_config: in production,
// security-critical keys come only from the file, falling back to the
// hardcoded default with a logged warning; AEGISH_MODE alone also falls
// through to the environment so production mode can be entered without a
// config file. In development, keys come from the environment.
func (c *Config) getSecurity(key, def string) string {
	if c.mode == ModeProduction && securityCriticalKeys[key] {
		if v, ok := c.fileKV[key]; ok {
			return v
		}
		if key == "AEGISH_MODE" {
			return os.Getenv(key)
		}
		c.log.Warn("security setting not found in config file; using secure default",
			"key", key, "default", def)
		return def
	}
	return os.Getenv(key)
}

func (c *Config) resolveSecurityString(key, def string) string {
	v := strings.TrimSpace(c.getSecurity(key, def))
	if v == "" {
		return def
	}
	return v
}

func (c *Config) resolveFailMode() FailMode {
	raw := strings.ToLower(strings.TrimSpace(c.getSecurity("AEGISH_FAIL_MODE", string(FailSafe))))
	if raw == string(FailOpen) {
		return FailOpen
	}
	return FailSafe
}

func (c *Config) resolveVarCmdAction() VarCmdAction {
	raw := strings.ToLower(strings.TrimSpace(c.getSecurity("AEGISH_VAR_CMD_ACTION", string(VarCmdBlock))))
	if raw == string(VarCmdWarn) {
		return VarCmdWarn
	}
	return VarCmdBlock
}

func (c *Config) resolveRole() Role {
	raw := strings.ToLower(strings.TrimSpace(c.getSecurity("AEGISH_ROLE", string(RoleDefault))))
	switch Role(raw) {
	case RoleSysadmin, RoleRestricted, RoleDefault:
		return Role(raw)
	default:
		if raw != "" {
			c.log.Warn("invalid role, falling back to default", "role", raw)
		}
		return RoleDefault
	}
}

func (c *Config) resolveAllowedProviders() []string {
	raw := c.getSecurity("AEGISH_ALLOWED_PROVIDERS", "")
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), DefaultAllowedProviders...)
	}
	return splitCSV(raw)
}

func (c *Config) resolveFallbackModels() []string {
	raw := c.getSecurity("AEGISH_FALLBACK_MODELS", "")
	if strings.TrimSpace(raw) == "" {
		return append([]string(nil), DefaultFallbackModels...)
	}
	return splitCSV(raw)
}

func (c *Config) envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		c.log.Debug("invalid integer setting, using default", "key", key, "value", raw)
		return def
	}
	return v
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// --- file loading ----------------------------------------------------------

// loadConfigFile parses a KEY=VALUE file with '#' comments and optionally
// quoted values. The file must be owned by uid 0 and not world-writable; the
// check applies in every mode, since the mode itself is read from this file.
// A failing check degrades to an empty map with a logged
// warning rather than aborting, matching the original's permissive load and
// letting resolveMode's env fallback still bootstrap production mode.
func loadConfigFile(path string, logger *slog.Logger) (map[string]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, &ErrConfig{Msg: fmt.Sprintf("cannot stat config file %s: %v", path, err)}
	}

	if ok, msg := validateFilePermissions(path, info); !ok {
		logger.Warn("config file permission check failed", "error", msg)
		return map[string]string{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("failed to read config file", "path", path, "error", err)
		return map[string]string{}, nil
	}
	defer f.Close()

	return parseConfigLines(f, path, logger)
}

// parseConfigLines parses a KEY=VALUE stream with '#' comments and optional
// surrounding quotes, isolated from the permission gate so it is testable
// without requiring a root-owned fixture file.
func parseConfigLines(r io.Reader, path string, logger *slog.Logger) (map[string]string, error) {
	kv := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			if logger != nil {
				logger.Debug("skipping malformed config line", "path", path, "line", lineNum)
			}
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		kv[key] = value
	}
	return kv, scanner.Err()
}

func validateFilePermissions(path string, info os.FileInfo) (bool, string) {
	if sys, ok := fileOwnerUID(info); ok && sys != 0 {
		return false, fmt.Sprintf(
			"config file %s is not owned by root (owned by uid %d); fix with: sudo chown root:root %s",
			path, sys, path)
	}
	if info.Mode().Perm()&0o002 != 0 {
		return false, fmt.Sprintf("config file %s is world-writable; fix with: sudo chmod o-w %s", path, path)
	}
	return true, ""
}
