package sanitizer

import (
	"regexp"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// TestSanitize_ScriptRemoval checks that script tags never survive sanitization
func TestSanitize_ScriptRemoval(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	rapid.Check(t, func(t *rapid.T) {
		scriptContent := rapid.StringMatching(`[a-zA-Z0-9\s\(\)\{\};='"]+`).Draw(t, "scriptContent")
		beforeContent := rapid.StringMatching(`[a-zA-Z0-9\s]+`).Draw(t, "beforeContent")
		afterContent := rapid.StringMatching(`[a-zA-Z0-9\s]+`).Draw(t, "afterContent")

		htmlWithScript := beforeContent + "<script>" + scriptContent + "</script>" + afterContent

		result := sanitizer.Sanitize(htmlWithScript)

		scriptTag := regexp.MustCompile(`(?i)<script`)
		if scriptTag.MatchString(result) {
			t.Fatalf("Script tag found in sanitized output: %s", result)
		}
	})
}

// TestSanitize_EventHandlerRemoval checks that inline event handlers are stripped
func TestSanitize_EventHandlerRemoval(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	eventHandlers := []string{
		"onclick", "onload", "onerror", "onmouseover", "onmouseout",
		"onfocus", "onblur", "onsubmit", "onchange", "onkeydown",
	}

	rapid.Check(t, func(t *rapid.T) {
		handlerIdx := rapid.IntRange(0, len(eventHandlers)-1).Draw(t, "handlerIdx")
		handler := eventHandlers[handlerIdx]
		handlerValue := rapid.StringMatching(`[a-zA-Z0-9\(\)]+`).Draw(t, "handlerValue")

		html := `<div ` + handler + `="` + handlerValue + `">Content</div>`

		result := sanitizer.Sanitize(html)

		eventRegex := regexp.MustCompile(`(?i)\s+on[a-z]+=`)
		if eventRegex.MatchString(result) {
			t.Fatalf("Event handler found in sanitized output: %s (original: %s)", result, html)
		}
	})
}

// TestSanitize_FormattingPreserved checks that benign formatting survives
func TestSanitize_FormattingPreserved(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	html := `<p>Heavy <strong>cotton</strong> tee with <em>ribbed</em> collar.</p><ul><li>Machine washable</li></ul>`
	result := sanitizer.Sanitize(html)

	for _, want := range []string{"<p>", "<strong>", "<em>", "<ul>", "<li>"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected %s to survive sanitization, got: %s", want, result)
		}
	}
}

// TestSanitize_JavascriptHref checks that javascript: links are removed
func TestSanitize_JavascriptHref(t *testing.T) {
	sanitizer := NewHTMLSanitizer()

	html := `<a href="javascript:alert(1)">click</a>`
	result := sanitizer.Sanitize(html)

	if strings.Contains(strings.ToLower(result), "javascript:") {
		t.Fatalf("javascript: URL survived sanitization: %s", result)
	}
}

// TestSanitize_Empty returns empty for empty input
func TestSanitize_Empty(t *testing.T) {
	sanitizer := NewHTMLSanitizer()
	if got := sanitizer.Sanitize(""); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}
