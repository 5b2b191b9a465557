// Package validator implements the validator (C8): the public entry
// point that composes the canonicalizer, static pre-filter,
// substitution resolver, and provider client into one decision per
// command.
package validator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegish-sh/aegish/internal/canon"
	"github.com/aegish-sh/aegish/internal/llmparse"
	"github.com/aegish-sh/aegish/internal/prefilter"
	"github.com/aegish-sh/aegish/internal/providers"
	"github.com/aegish-sh/aegish/internal/resolver"
	"github.com/aegish-sh/aegish/internal/sanitize"
)

// tracer emits one span per pipeline stage (C3 canonicalize, C4
// pre-filter, C5 resolve, C7 classify) under a single parent span per
// command, so a configured OTel exporter can show where time and
// decisions come from without the operator-facing output changing at
// all when no exporter is configured (the global no-op tracer costs
// nothing).
var tracer = otel.Tracer("aegish/validator")

// Action is a classification outcome.
type Action string

const (
	Allow Action = "allow"
	Warn  Action = "warn"
	Block Action = "block"
)

// Decision is the result of validating one command.
type Decision struct {
	ID           string // correlation ID shared with the audit entry and ResolveLog
	Action       Action
	Reason       string
	Confidence   float64
	Source       string // "prefilter", "resolver", "length_limit", "provider:<name>", "fail_mode", "empty"
	ResolvedText string // canonical text after substitution resolution
	ResolveLog   []resolver.LogEntry
}

// Config is the subset of runtime configuration the validator needs.
// internal/config.Config satisfies this by value copy at call time so
// this package never imports internal/config directly, keeping the
// dependency direction one-way (config is read by everyone, read by
// nothing it validates).
type Config struct {
	VarCmdAction        string // "block" or "warn" — prefilter's configured action
	MaxCommandLength    int
	ResolverMaxDepth    int
	ResolverTimeout     time.Duration
	FailMode            string // "safe" or "open"
	ProviderTimeout     time.Duration
	SystemPromptPreface string
}

// Validator ties the pipeline stages together. Chain and Execute are
// supplied by the caller (cmd/aegish's wiring) so this package never
// imports internal/providers' concrete constructors or internal/sandbox
// directly beyond the interfaces it needs.
type Validator struct {
	cfg   Config
	chain *providers.Chain
	exec  resolver.ExecuteFunc
	env   []string // process environment snapshot, for sensitive-variable redaction
}

func New(cfg Config, chain *providers.Chain, exec resolver.ExecuteFunc, processEnv []string) *Validator {
	return &Validator{cfg: cfg, chain: chain, exec: exec, env: processEnv}
}

// Validate runs the full pipeline over a raw operator command at
// recursion depth 0, under one parent trace span stamped with the
// command's correlation ID.
func (v *Validator) Validate(ctx context.Context, command string) Decision {
	id := uuid.NewString()
	ctx, span := tracer.Start(ctx, "validator.Validate", trace.WithAttributes(attribute.String("aegish.request_id", id)))
	defer span.End()

	decision := v.validateAt(ctx, id, command, 0)
	decision.ID = id
	span.SetAttributes(attribute.String("aegish.action", string(decision.Action)), attribute.String("aegish.source", decision.Source))
	return decision
}

func (v *Validator) validateAt(ctx context.Context, id, command string, depth int) Decision {
	if strings.TrimSpace(command) == "" {
		return Decision{ID: id, Action: Block, Reason: "Empty command", Confidence: 1, Source: "empty"}
	}

	ctx, canonSpan := tracer.Start(ctx, "validator.canonicalize")
	result := canon.Canonicalize(command)
	canonSpan.End()

	_, prefilterSpan := tracer.Start(ctx, "validator.prefilter")
	pf, hit := scanAllVariants(command, result)
	prefilterSpan.End()
	if hit {
		action := Block
		if strings.EqualFold(v.cfg.VarCmdAction, "warn") {
			action = Warn
		}
		return Decision{ID: id, Action: action, Reason: pf.Detail, Confidence: 1, Source: "prefilter"}
	}

	ctx, resolveSpan := tracer.Start(ctx, "validator.resolve")
	res := resolver.New(v.cfg.ResolverMaxDepth, v.cfg.ResolverTimeout, v.makeValidateFunc(id), v.exec)
	resolvedText, resolveLog := res.Resolve(ctx, id, result.Text, depth)
	resolveSpan.End()

	if d, ok := worstInnerDecision(resolveLog); ok {
		d.ID = id
		d.ResolvedText = resolvedText
		d.ResolveLog = resolveLog
		return d
	}

	maxLen := v.cfg.MaxCommandLength
	if maxLen <= 0 {
		maxLen = 4096
	}
	if len(resolvedText) > maxLen {
		return Decision{
			ID: id, Action: Block, Reason: fmt.Sprintf("command exceeds maximum length of %d characters", maxLen),
			Confidence: 1, Source: "length_limit", ResolvedText: resolvedText, ResolveLog: resolveLog,
		}
	}

	ctx, classifySpan := tracer.Start(ctx, "validator.classify")
	decision := v.classify(ctx, result.Text, resolvedText)
	classifySpan.End()
	decision.ID = id
	decision.ResolvedText = resolvedText
	decision.ResolveLog = resolveLog
	decision.Reason = mergeResolveNote(decision.Reason, resolveLog)
	return decision
}

// scanAllVariants runs the static pre-filter over the raw command and,
// per the brace-variant Open Question, over every brace-expansion
// enumeration canonicalization produced — a bare `if true; then $X; fi`
// evasion can hide behind whichever enumeration the operator actually
// intends to run, so every one of them must be walked.
func scanAllVariants(original string, result canon.Result) (prefilter.Finding, bool) {
	if pf := prefilter.Scan(original); pf.Parsed && pf.Flagged {
		return pf, true
	}
	if pf := prefilter.Scan(result.Text); pf.Parsed && pf.Flagged {
		return pf, true
	}
	for _, variant := range result.Variants {
		if pf := prefilter.Scan(variant); pf.Parsed && pf.Flagged {
			return pf, true
		}
	}
	return prefilter.Finding{}, false
}

// makeValidateFunc adapts validateAt to resolver.ValidateFunc for
// recursive inner-command validation, carrying the same correlation ID
// down into every nested decision.
func (v *Validator) makeValidateFunc(id string) resolver.ValidateFunc {
	return func(ctx context.Context, command string, depth int) (string, string, float64, error) {
		d := v.validateAt(ctx, id, command, depth)
		return string(d.Action), d.Reason, d.Confidence, nil
	}
}

// worstInnerDecision propagates a BLOCK or WARN found among the inner
// substitutions, per the outer-decision-reflects-worst-inner-status
// default policy.
func worstInnerDecision(log []resolver.LogEntry) (Decision, bool) {
	worst := Decision{}
	found := false
	for _, entry := range log {
		switch entry.Status {
		case resolver.StatusBlocked:
			return Decision{Action: Block, Reason: "inner substitution blocked: " + entry.Reason, Confidence: 1, Source: "resolver"}, true
		case resolver.StatusWarned:
			if !found {
				worst = Decision{Action: Warn, Reason: "inner substitution warned: " + entry.Reason, Confidence: entry.InnerConfiden, Source: "resolver"}
				found = true
			}
		}
	}
	return worst, found
}

func mergeResolveNote(reason string, log []resolver.LogEntry) string {
	if len(log) == 0 {
		return reason
	}
	resolved, blocked, warned := 0, 0, 0
	for _, e := range log {
		switch e.Status {
		case resolver.StatusResolved:
			resolved++
		case resolver.StatusBlocked:
			blocked++
		case resolver.StatusWarned:
			warned++
		}
	}
	note := fmt.Sprintf("resolved %d substitution(s)", resolved)
	if blocked > 0 {
		note += fmt.Sprintf(", %d blocked", blocked)
	}
	if warned > 0 {
		note += fmt.Sprintf(", %d warned", warned)
	}
	if reason == "" {
		return note
	}
	return reason + " (" + note + ")"
}

// classify submits the canonical command to the provider chain, adding
// the substitution-resolved text as an "after environment expansion"
// note when it differs, and turns the result (or the chain's exhaustion)
// into a Decision. canonical is the pre-resolution canonical text (post
// C3, pre C5) so the note only fires on genuine substitution-driven
// changes, never on canonicalization alone (quote normalization,
// backtick conversion, ANSI-C decoding).
func (v *Validator) classify(ctx context.Context, canonical, resolved string) Decision {
	systemPrompt := v.cfg.SystemPromptPreface
	userPrompt := fmt.Sprintf("<COMMAND>\n%s\n</COMMAND>", sanitize.RedactForPrompt(canonical, v.env))
	if resolved != canonical {
		userPrompt += fmt.Sprintf("\n\nAfter environment expansion: %s", sanitize.RedactForPrompt(resolved, v.env))
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if v.cfg.ProviderTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, v.cfg.ProviderTimeout)
		defer cancel()
	}

	resp, descriptor, err := v.chain.Classify(callCtx, systemPrompt, userPrompt)
	if err != nil {
		return v.failModeDecision(err)
	}

	parsed := llmparse.Parse(resp.Completion, resp.StopReason)
	if parsed.Action == "" {
		return v.failModeDecision(fmt.Errorf("provider %s: unparseable response (%s)", descriptor, parsed.Failure))
	}

	return Decision{
		Action:     Action(parsed.Action),
		Reason:     parsed.Reason,
		Confidence: parsed.Confidence,
		Source:     "provider:" + descriptor.String(),
	}
}

func (v *Validator) failModeDecision(err error) Decision {
	if strings.EqualFold(v.cfg.FailMode, "open") {
		return Decision{Action: Warn, Reason: "all providers failed: " + err.Error(), Confidence: 0, Source: "fail_mode"}
	}
	return Decision{Action: Block, Reason: "all providers failed: " + err.Error(), Confidence: 0, Source: "fail_mode"}
}
