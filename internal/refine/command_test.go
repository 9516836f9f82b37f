package refine

import (
	"errors"
	"strings"
	"testing"
)

func TestParseReplace(t *testing.T) {
	raw := "some preamble\n" + FormatReplace("print(2)") + "\ntrailing chatter"
	cmd, err := ParseCommand(raw)
	if err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if cmd.Kind() != "replace" {
		t.Fatalf("kind = %q, want replace", cmd.Kind())
	}
	out, err := cmd.Apply("print(1)")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out != "print(2)" {
		t.Fatalf("Apply() = %q, want print(2)", out)
	}
}

func TestParseEdit(t *testing.T) {
	raw := FormatEdit("print(2)", "print(3)")
	cmd, err := ParseCommand(raw)
	if err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	out, err := cmd.Apply("x = 1\nprint(2)\n")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if out != "x = 1\nprint(3)\n" {
		t.Fatalf("Apply() = %q", out)
	}
}

func TestParseRejectsMissingAndConflictingBlocks(t *testing.T) {
	var pe *ParseError
	if _, err := ParseCommand("no command here"); !errors.As(err, &pe) {
		t.Fatalf("want ParseError for missing block, got %v", err)
	}
	two := FormatReplace("a") + "\n" + FormatReplace("b")
	if _, err := ParseCommand(two); !errors.As(err, &pe) {
		t.Fatalf("want ParseError for conflicting blocks, got %v", err)
	}
	if _, err := ParseCommand("<<<COMMAND replace\nnever terminated"); !errors.As(err, &pe) {
		t.Fatalf("want ParseError for missing terminator, got %v", err)
	}
	if _, err := ParseCommand("<<<COMMAND rewrite\nbody\n>>>END"); !errors.As(err, &pe) {
		t.Fatalf("want ParseError for unknown kind, got %v", err)
	}
}

func TestEditAnchorMustBeUnique(t *testing.T) {
	artifact := "print(2)\nprint(2)\n"
	cmd := Edit{Anchor: "print(2)", Replacement: "print(3)"}
	if _, err := cmd.Apply(artifact); !errors.Is(err, ErrAnchorNotFound) {
		t.Fatalf("duplicate anchor: want ErrAnchorNotFound, got %v", err)
	}
	cmd = Edit{Anchor: "print(9)", Replacement: "print(3)"}
	if _, err := cmd.Apply(artifact); !errors.Is(err, ErrAnchorNotFound) {
		t.Fatalf("missing anchor: want ErrAnchorNotFound, got %v", err)
	}
	// The artifact is never mutated on failure: Apply is pure.
	if artifact != "print(2)\nprint(2)\n" {
		t.Fatalf("artifact mutated: %q", artifact)
	}
}

func TestReplaceIsIdempotent(t *testing.T) {
	cmd := Replace{Content: "print(2)"}
	once, err := cmd.Apply("print(1)")
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	twice, err := cmd.Apply(once)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if once != twice {
		t.Fatalf("second Apply changed artifact: %q vs %q", once, twice)
	}
}

func TestParseEditMultilineBodies(t *testing.T) {
	anchor := "func a() {\n\treturn 1\n}"
	repl := "func a() {\n\treturn 2\n}"
	cmd, err := ParseCommand(FormatEdit(anchor, repl))
	if err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	e, ok := cmd.(Edit)
	if !ok {
		t.Fatalf("command is %T, want Edit", cmd)
	}
	if e.Anchor != anchor || e.Replacement != repl {
		t.Fatalf("round-trip mismatch:\nanchor %q\nrepl %q", e.Anchor, e.Replacement)
	}
	if strings.Count(FormatEdit(anchor, repl), cmdSep) != 1 {
		t.Fatalf("formatter emitted extra separators")
	}
}
