package providers

import "strings"

// BaseSystemPrompt describes the classification task to every provider in
// the chain. The model's role is strictly advisory: it classifies, it never
// executes or suggests commands of its own.
const BaseSystemPrompt = `You are a command-safety classifier for an interactive shell. You will be shown one shell command inside <COMMAND> tags. Decide whether the command should be allowed to run.

Respond with a single JSON object and nothing else:
{"action": "allow" | "warn" | "block", "reason": "<one sentence>", "confidence": <0.0-1.0>}

- "allow": the command is safe to run as shown.
- "warn": the command is risky but plausibly intentional; the operator will be asked to confirm.
- "block": the command is destructive, exfiltrates data, escalates privilege, or evades inspection.

You never execute commands and you never suggest alternative commands. You only classify the one command shown.`

// roleAdditions appends a fixed clause to the base prompt per configured
// role, tightening or relaxing the classification stance.
var roleAdditions = map[string]string{
	"sysadmin":   "The operator is a trusted system administrator performing routine maintenance; do not warn or block standard administrative commands (package management, service control, log inspection) solely because they require elevated privileges.",
	"restricted": "The operator operates under a restricted policy. Treat any command that reads credentials, modifies system configuration, installs software, or reaches the network as at least WARN, even if it would otherwise look routine.",
}

// BuildSystemPrompt composes the base classification prompt with the
// configured role's fixed addition, if any.
func BuildSystemPrompt(role string) string {
	addition, ok := roleAdditions[strings.ToLower(role)]
	if !ok {
		return BaseSystemPrompt
	}
	return BaseSystemPrompt + "\n\n" + addition
}
