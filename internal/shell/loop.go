// Package shell implements the decision loop (C10): the interactive
// read-validate-act-log cycle that ties the validator, sandboxed executor,
// and audit log together into the operator-facing shell.
//
// Grounded on original_source/src/aegish/shell.go's run_shell() loop
// (prompt, exit sentinel, WARN confirmation, exit-code bookkeeping) and the
// teacher's cmd/agent_chat_standalone.go REPL (signal.NotifyContext Ctrl-C
// handling, bufio.Scanner input, "exit"-word dispatch).
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/aegish-sh/aegish/internal/audit"
	"github.com/aegish-sh/aegish/internal/sandbox"
	"github.com/aegish-sh/aegish/internal/validator"
)

// Exit code constants. Only 1, 2, and 130 are named by the external
// contract; 0 is carried alongside for completeness and used by the seed
// tests and cmd/aegish's os.Exit call.
const (
	ExitSuccess          = 0
	ExitBlocked          = 1
	ExitCancelled        = 2
	ExitKeyboardInterrupt = 130
)

const prompt = "aegish> "

var (
	blockStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))  // red
	warnStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")) // yellow
)

// Descriptor is one entry of the resolved model chain for the startup
// banner: its name and whether a health check (or a missing credential)
// marked it unavailable.
type Descriptor struct {
	Name      string
	Available bool
}

// Loop is the interactive decision loop.
type Loop struct {
	Validator  *validator.Validator
	Executor   *sandbox.Executor
	Audit      *audit.Log
	Production bool
	FailMode   string
	ModelChain []Descriptor

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Interactive disables the WARN confirmation prompt when false (stdin
	// isn't a TTY, e.g. aegish driven from a script or CI job): there is
	// no operator present to answer it, so a WARN is treated as declined
	// rather than blocking forever on a read that will never produce
	// input. New() derives this from the real stdin; callers feeding a
	// non-terminal In for testing purposes can still set it explicitly.
	Interactive bool
}

// New builds a Loop reading from stdin and writing to stdout/stderr.
func New(v *validator.Validator, exec *sandbox.Executor, auditLog *audit.Log, production bool, failMode string, chain []Descriptor) *Loop {
	return &Loop{
		Validator:  v,
		Executor:   exec,
		Audit:      auditLog,
		Production: production,
		FailMode:   failMode,
		ModelChain: chain,
		In:         os.Stdin,
		Out:        os.Stdout,
		Err:        os.Stderr,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// Banner writes the startup banner: model chain with per-descriptor
// availability, operational mode, and fail-mode.
func (l *Loop) Banner() {
	fmt.Fprintln(l.Err, "aegish - LLM-mediated shell with security validation")

	var parts []string
	for _, d := range l.ModelChain {
		status := "--"
		if d.Available {
			status = "active"
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", d.Name, status))
	}
	fmt.Fprintf(l.Err, "Model chain: %s\n", strings.Join(parts, " > "))

	mode := "development"
	if l.Production {
		mode = "production"
	}
	fmt.Fprintf(l.Err, "Mode: %s | Fail-mode: %s\n", mode, l.FailMode)
	fmt.Fprintln(l.Err, "Type 'exit' or press Ctrl+D to quit.")
	fmt.Fprintln(l.Err)
}

// Run executes the read-validate-act-log loop until the exit sentinel,
// end-of-input, or an operator interrupt (in either mode). It returns the
// process exit code.
func (l *Loop) Run(ctx context.Context) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	scanner := bufio.NewScanner(l.In)
	lastExitCode := ExitSuccess

	for {
		fmt.Fprint(l.Out, prompt)

		lineCh := make(chan string, 1)
		okCh := make(chan bool, 1)
		go func() {
			ok := scanner.Scan()
			lineCh <- scanner.Text()
			okCh <- ok
		}()

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(l.Out)
			lastExitCode = ExitKeyboardInterrupt
			if l.Production {
				return lastExitCode
			}
			fmt.Fprintln(l.Err, "warning: parent shell is not monitored by aegish")
			return lastExitCode
		case ok = <-okCh:
			line = <-lineCh
		}

		if !ok {
			fmt.Fprintln(l.Out)
			if l.Production {
				return lastExitCode
			}
			fmt.Fprintln(l.Err, "warning: parent shell is not monitored by aegish")
			return lastExitCode
		}

		command := strings.TrimSpace(line)
		if command == "" {
			continue
		}
		if command == "exit" {
			if l.Production {
				return lastExitCode
			}
			fmt.Fprintln(l.Err, "warning: parent shell is not monitored by aegish")
			return lastExitCode
		}

		lastExitCode = l.handle(ctx, scanner, command, lastExitCode)
	}
}

func (l *Loop) handle(ctx context.Context, scanner *bufio.Scanner, command string, lastExitCode int) int {
	decision := l.Validator.Validate(ctx, command)
	target := decision.ResolvedText
	if target == "" {
		target = command
	}

	switch decision.Action {
	case validator.Allow:
		code, err := l.Executor.Run(ctx, target, lastExitCode, nil, nil, nil)
		if err != nil {
			fmt.Fprintf(l.Err, "execution error: %v\n", err)
		}
		l.record(command, decision)
		return code

	case validator.Block:
		fmt.Fprintf(l.Out, "\n%s\n", blockStyle.Render("BLOCKED: "+decision.Reason))
		l.record(command, decision)
		return ExitBlocked

	case validator.Warn:
		return l.handleWarn(ctx, scanner, command, target, decision, lastExitCode)

	default:
		// Unrecognised action: treat as WARN, belt-and-braces.
		decision.Reason = fmt.Sprintf("unexpected validation response %q; proceed with caution", decision.Action)
		return l.handleWarn(ctx, scanner, command, target, decision, lastExitCode)
	}
}

func (l *Loop) handleWarn(ctx context.Context, scanner *bufio.Scanner, command, target string, decision validator.Decision, lastExitCode int) int {
	fmt.Fprintf(l.Out, "\n%s\n", warnStyle.Render(fmt.Sprintf("WARNING: %s (confidence %.2f)", decision.Reason, decision.Confidence)))

	if !l.Interactive {
		fmt.Fprintln(l.Out, "stdin is not a terminal; declining by default.")
		fmt.Fprintln(l.Out, "Command cancelled.")
		fmt.Fprintln(l.Out)
		l.record(command, decision)
		return ExitCancelled
	}

	fmt.Fprint(l.Out, "Proceed anyway? [y/N]: ")

	var response string
	if scanner.Scan() {
		response = strings.ToLower(strings.TrimSpace(scanner.Text()))
	}

	if response == "y" || response == "yes" {
		code, err := l.Executor.Run(ctx, target, lastExitCode, nil, nil, nil)
		if err != nil {
			fmt.Fprintf(l.Err, "execution error: %v\n", err)
		}
		if l.Audit != nil {
			l.Audit.RecordWarnOverride(decision.ID, command, decision.Reason)
		}
		return code
	}

	fmt.Fprintln(l.Out, "Command cancelled.")
	fmt.Fprintln(l.Out)
	l.record(command, decision)
	return ExitCancelled
}

func (l *Loop) record(command string, decision validator.Decision) {
	if l.Audit == nil {
		return
	}
	model := ""
	if strings.HasPrefix(decision.Source, "provider:") {
		model = strings.TrimPrefix(decision.Source, "provider:")
	}
	l.Audit.Record(decision.ID, command, string(decision.Action), decision.Reason, decision.Confidence, decision.Source, model)
}
