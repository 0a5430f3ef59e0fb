package asm

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// commentMarker starts a comment that runs to the end of the line.
const commentMarker = "#"

// sourceLine is one line of assembly after comment stripping.
type sourceLine struct {
	number int    // 1-based line number
	raw    string // original line without a trailing carriage return
	text   string // comment-free text with surrounding whitespace removed
	offset int    // byte offset of text within raw
}

func (l sourceLine) isBlank() bool {
	return l.text == ""
}

func (l sourceLine) isLabel() bool {
	return strings.HasSuffix(l.text, ":")
}

// labelName returns the declared label name of a label line.
func (l sourceLine) labelName() string {
	return strings.TrimSpace(strings.TrimSuffix(l.text, ":"))
}

// column converts a byte offset within text to a 1-based rune column of raw.
func (l sourceLine) column(textOffset int) int {
	return utf8.RuneCountInString(l.raw[:l.offset+textOffset]) + 1
}

// token is a whitespace-delimited word of an instruction line.
type token struct {
	text   string
	offset int // byte offset within the line's text
}

// tokens splits the line's text on whitespace, remembering where each token
// starts so errors can point at it.
func (l sourceLine) tokens() []token {
	var result []token
	start := -1
	for i, r := range l.text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				result = append(result, token{text: l.text[start:i], offset: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		result = append(result, token{text: l.text[start:], offset: start})
	}
	return result
}

// cleanLines strips comments and surrounding whitespace from every line.
// Both assembly passes iterate the same cleaned lines so that address
// counting stays consistent between them.
func cleanLines(lines []string) []sourceLine {
	result := make([]sourceLine, len(lines))
	for i, raw := range lines {
		raw = strings.TrimSuffix(raw, "\r")
		code := raw
		if idx := strings.Index(code, commentMarker); idx >= 0 {
			code = code[:idx]
		}
		trimmedLeft := strings.TrimLeftFunc(code, unicode.IsSpace)
		result[i] = sourceLine{
			number: i + 1,
			raw:    raw,
			text:   strings.TrimRightFunc(trimmedLeft, unicode.IsSpace),
			offset: len(code) - len(trimmedLeft),
		}
	}
	return result
}

// isInteger reports whether tok is an integer literal: one or more ASCII
// digits, optionally preceded by a single sign character.
func isInteger(tok string) bool {
	if tok != "" && (tok[0] == '-' || tok[0] == '+') {
		tok = tok[1:]
	}
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return false
		}
	}
	return true
}
