package refine

import (
	"strings"
)

// Command is one structured edit instruction emitted by the generator.
type Command interface {
	Kind() string
	// Apply produces the candidate text. The receiver never mutates the
	// input; a failed Apply leaves the artifact untouched by construction.
	Apply(artifact string) (string, error)
}

// Replace substitutes the entire artifact. Always applicable and
// idempotent for identical content.
type Replace struct {
	Content string
}

func (Replace) Kind() string { return "replace" }

func (c Replace) Apply(string) (string, error) { return c.Content, nil }

// Edit replaces an exact anchor span with new text. The anchor must occur
// exactly once in the artifact.
type Edit struct {
	Anchor      string
	Replacement string
}

func (Edit) Kind() string { return "edit" }

func (c Edit) Apply(artifact string) (string, error) {
	if c.Anchor == "" {
		return "", ErrAnchorNotFound
	}
	if n := strings.Count(artifact, c.Anchor); n != 1 {
		return "", ErrAnchorNotFound
	}
	return strings.Replace(artifact, c.Anchor, c.Replacement, 1), nil
}

// Command block markers. The generator is prompted to emit exactly one
// block in this mini-language:
//
//	<<<COMMAND replace
//	full new artifact content
//	>>>END
//
//	<<<COMMAND edit
//	anchor text
//	<<<WITH
//	replacement text
//	>>>END
const (
	cmdOpen = "<<<COMMAND"
	cmdSep  = "<<<WITH"
	cmdEnd  = ">>>END"
)

// ParseCommand scans raw generator output for exactly one recognized
// command block. Zero, multiple, or malformed blocks yield a *ParseError.
func ParseCommand(raw string) (Command, error) {
	if n := strings.Count(raw, cmdOpen); n == 0 {
		return nil, parseErrorf("no %s block found", cmdOpen)
	} else if n > 1 {
		return nil, parseErrorf("%d conflicting %s blocks found", n, cmdOpen)
	}

	start := strings.Index(raw, cmdOpen)
	rest := raw[start+len(cmdOpen):]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return nil, parseErrorf("unterminated command header")
	}
	kind := strings.TrimSpace(rest[:nl])
	body := rest[nl+1:]

	end := strings.Index(body, cmdEnd)
	if end < 0 {
		return nil, parseErrorf("missing %s terminator", cmdEnd)
	}
	body = body[:end]
	// The terminator sits on its own line; drop the trailing newline that
	// precedes it so block content round-trips exactly.
	body = strings.TrimSuffix(body, "\n")

	switch kind {
	case "replace":
		return Replace{Content: body}, nil
	case "edit":
		if n := strings.Count(body, cmdSep); n != 1 {
			return nil, parseErrorf("edit block needs exactly one %s separator, found %d", cmdSep, n)
		}
		sep := strings.Index(body, cmdSep)
		anchor := strings.TrimSuffix(body[:sep], "\n")
		repl := body[sep+len(cmdSep):]
		repl = strings.TrimPrefix(repl, "\n")
		if anchor == "" {
			return nil, parseErrorf("edit block has empty anchor")
		}
		return Edit{Anchor: anchor, Replacement: repl}, nil
	default:
		return nil, parseErrorf("unrecognized command kind %q", kind)
	}
}

// FormatReplace renders a Replace command in the block mini-language.
// Used by prompts (as a worked example) and by tests.
func FormatReplace(content string) string {
	return cmdOpen + " replace\n" + content + "\n" + cmdEnd
}

// FormatEdit renders an Edit command in the block mini-language.
func FormatEdit(anchor, replacement string) string {
	return cmdOpen + " edit\n" + anchor + "\n" + cmdSep + "\n" + replacement + "\n" + cmdEnd
}
