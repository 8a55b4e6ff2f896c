// Package sanitizer provides HTML sanitization for merchant-authored
// product descriptions to prevent XSS in the storefront.
package sanitizer

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer cleans rich-text HTML before it is served to browsers
type HTMLSanitizer interface {
	Sanitize(html string) string
}

// DefaultHTMLSanitizer implements HTMLSanitizer using bluemonday
type DefaultHTMLSanitizer struct {
	policy *bluemonday.Policy
}

var (
	scriptTagRegex     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	scriptOpenTagRegex = regexp.MustCompile(`(?i)<script[^>]*>`)
	eventHandlerRegex  = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
)

// NewHTMLSanitizer creates a sanitizer for product description HTML.
// Descriptions are written in back-office tooling, so formatting and
// links survive but anything executable is stripped.
func NewHTMLSanitizer() *DefaultHTMLSanitizer {
	policy := bluemonday.UGCPolicy()

	policy.AllowElements(
		"p", "br", "hr", "div", "span",
		"h1", "h2", "h3", "h4", "h5", "h6",
		"strong", "b", "em", "i", "u", "s",
		"blockquote", "pre", "code",
		"ul", "ol", "li", "dl", "dt", "dd",
		"table", "thead", "tbody", "tr", "th", "td",
	)

	policy.AllowAttrs("href").OnElements("a")
	policy.AllowAttrs("class").Globally()
	policy.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	policy.RequireNoFollowOnLinks(false)
	policy.AllowRelativeURLs(false)
	policy.AllowURLSchemes("https", "mailto")

	return &DefaultHTMLSanitizer{
		policy: policy,
	}
}

// Sanitize applies all sanitization rules to product description HTML
func (s *DefaultHTMLSanitizer) Sanitize(html string) string {
	if html == "" {
		return ""
	}

	// Strip scripts and inline handlers before bluemonday runs so even
	// a policy change upstream cannot reintroduce them
	result := scriptTagRegex.ReplaceAllString(html, "")
	result = scriptOpenTagRegex.ReplaceAllString(result, "")
	result = eventHandlerRegex.ReplaceAllString(result, "")

	return s.policy.Sanitize(result)
}
