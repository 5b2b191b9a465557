package prefilter

import "testing"

func TestScanAllowsPlainCommand(t *testing.T) {
	f := Scan("echo hello")
	if !f.Parsed || f.Flagged {
		t.Fatalf("expected plain command to pass, got %+v", f)
	}
}

func TestScanFlagsDirectVariableCommand(t *testing.T) {
	f := Scan(`$cmd arg`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected direct variable command to be flagged, got %+v", f)
	}
}

func TestScanFlagsSplitConcatenatedCommand(t *testing.T) {
	f := Scan(`a=ba; b=sh; $a$b`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected split-and-concatenate to be flagged, got %+v", f)
	}
}

func TestScanFlagsVariableCommandInsideForLoop(t *testing.T) {
	f := Scan(`for i in 1; do $cmd; done`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected variable command inside for-loop to be flagged, got %+v", f)
	}
}

func TestScanFlagsVariableCommandInsideIf(t *testing.T) {
	f := Scan(`if true; then $cmd; fi`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected variable command inside if to be flagged, got %+v", f)
	}
}

func TestScanFlagsVariableCommandInsideWhile(t *testing.T) {
	f := Scan(`while true; do $cmd; break; done`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected variable command inside while to be flagged, got %+v", f)
	}
}

func TestScanFlagsVariableCommandInsideUntil(t *testing.T) {
	f := Scan(`until false; do $cmd; break; done`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected variable command inside until to be flagged, got %+v", f)
	}
}

func TestScanFlagsVariableCommandInsideCase(t *testing.T) {
	f := Scan(`case $x in *) $cmd ;; esac`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected variable command inside case to be flagged, got %+v", f)
	}
}

func TestScanFlagsVariableCommandInsideSubshell(t *testing.T) {
	f := Scan(`($cmd)`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected variable command inside subshell to be flagged, got %+v", f)
	}
}

func TestScanFlagsVariableCommandInsideBraceGroup(t *testing.T) {
	f := Scan(`{ $cmd; }`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected variable command inside brace group to be flagged, got %+v", f)
	}
}

func TestScanFlagsVariableCommandInsideFunctionBody(t *testing.T) {
	f := Scan(`f() { $cmd; }`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected variable command inside function body to be flagged, got %+v", f)
	}
}

func TestScanFlagsEvalOfVariable(t *testing.T) {
	f := Scan(`eval "$cmd"`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected eval of variable to be flagged, got %+v", f)
	}
}

func TestScanFlagsSourceOfCommandSubstitution(t *testing.T) {
	f := Scan(`source $(echo /tmp/x)`)
	if !f.Parsed || !f.Flagged {
		t.Fatalf("expected source of command substitution to be flagged, got %+v", f)
	}
}

func TestScanAllowsLiteralEvalArgument(t *testing.T) {
	f := Scan(`eval "echo hi"`)
	if !f.Parsed || f.Flagged {
		t.Fatalf("expected eval with a literal argument to pass, got %+v", f)
	}
}

func TestScanAllowsVariableAsPlainArgument(t *testing.T) {
	f := Scan(`echo $HOME`)
	if !f.Parsed || f.Flagged {
		t.Fatalf("expected variable used as an argument (not command name) to pass, got %+v", f)
	}
}

func TestScanReportsParseErrorWithoutPanicking(t *testing.T) {
	f := Scan(`if true; then`)
	if f.Parsed {
		t.Fatalf("expected malformed command to be reported as unparsed")
	}
	if f.ParseError == "" {
		t.Fatalf("expected a parse error message")
	}
}
