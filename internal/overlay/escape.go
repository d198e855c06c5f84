// Package overlay turns scheduled overlay events into ffmpeg drawtext
// instructions, including the scrolling price ticker.
package overlay

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"newsreel/internal/failure"
)

// escapeOrder is applied first to last. The backslash must come first so the
// escapes added later are not escaped again.
var escapeOrder = []string{`\`, `'`, `"`, `:`, `[`, `]`, `%`}

// Escape makes text safe for drawtext's own text expansion, which drops the
// backslash in front of any character and treats a bare % as an expansion.
// Text the rules cannot represent, such as control characters, is rejected.
func Escape(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", fmt.Errorf("%w: invalid UTF-8", failure.ErrEscapingViolation)
	}
	for i, r := range text {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: control character %U at byte %d", failure.ErrEscapingViolation, r, i)
		}
	}

	for _, ch := range escapeOrder {
		text = strings.ReplaceAll(text, ch, `\`+ch)
	}
	return text, nil
}

// Unescape reverses Escape.
func Unescape(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	escaped := false
	for _, r := range text {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// quote wraps s for one pass of ffmpeg's tokenizer. Inside quotes nothing is
// special, so an embedded quote closes the run, is emitted escaped, and the
// run reopens.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// filterArgs renders key=value options as the argument string of one filter.
// Values are quoted for the option parser and the whole string again for the
// filtergraph parser, so , ; [ ] and : in values stay literal.
func filterArgs(opts [][2]string) string {
	parts := make([]string, len(opts))
	for i, o := range opts {
		parts[i] = o[0] + "=" + quote(o[1])
	}
	return quote(strings.Join(parts, ":"))
}

// EscapeFilterPath escapes a file path used as the only, positional argument
// of a filter, e.g. ass=<path>.
func EscapeFilterPath(p string) string {
	return quote(quote(p))
}
