// Package gherkin post-processes model output destined for .feature files.
package gherkin

import "strings"

const (
	openingFence = "```gherkin"
	closingFence = "```"
)

// StripFence removes a Markdown code fence wrapping a gherkin document.
// Only an exact "```gherkin" opening line and an exact closing "```" are
// removed; any other text is returned unchanged.
func StripFence(text string) string {
	afterOpening, hasOpening := strings.CutPrefix(text, openingFence)
	if !hasOpening {
		return text
	}
	body, hasLineBreak := cutLineBreak(afterOpening)
	if !hasLineBreak {
		if strings.TrimSpace(afterOpening) != "" {
			// "```gherkinish" is not a fence.
			return text
		}
		return ""
	}

	withoutTrailing := strings.TrimRight(body, " \t\r\n")
	inner, hasClosing := strings.CutSuffix(withoutTrailing, closingFence)
	if !hasClosing {
		return body
	}
	if inner == "" {
		return ""
	}
	inner, hasLineBreak = cutTrailingLineBreak(inner)
	if !hasLineBreak {
		// closing backticks share a line with content
		return body
	}
	return inner
}

// EnsureTrailingNewline terminates non-empty text with exactly one newline.
func EnsureTrailingNewline(text string) string {
	if text == "" {
		return text
	}
	return strings.TrimRight(text, "\r\n") + "\n"
}

func cutLineBreak(text string) (string, bool) {
	if rest, ok := strings.CutPrefix(text, "\r\n"); ok {
		return rest, true
	}
	return strings.CutPrefix(text, "\n")
}

func cutTrailingLineBreak(text string) (string, bool) {
	if rest, ok := strings.CutSuffix(text, "\r\n"); ok {
		return rest, true
	}
	return strings.CutSuffix(text, "\n")
}
