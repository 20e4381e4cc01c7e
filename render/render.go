// Package render turns user-supplied Markdown into HTML that is safe to embed
// in a page. Post and comment bodies are passed through Sanitized whenever
// their text changes.
package render

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"gitlab.com/golang-commonmark/markdown"
)

// allowedTags is the tag allow-list for post and comment bodies.
var allowedTags = []string{
	"a", "abbr", "acronym", "b", "blockquote", "code",
	"em", "i", "li", "ol", "pre", "strong", "ul",
	"h1", "h2", "h3", "p",
}

// Renderer converts Markdown to sanitized HTML. It is safe for concurrent use.
type Renderer struct {
	md     *markdown.Markdown
	policy *bluemonday.Policy
}

// New returns a Renderer that keeps only the given tags. Links always get
// rel="nofollow".
func New(tags []string) *Renderer {
	return &Renderer{
		md:     markdown.New(markdown.HTML(true), markdown.Linkify(true), markdown.MaxNesting(10)),
		policy: newPolicy(tags),
	}
}

func newPolicy(tags []string) *bluemonday.Policy {
	p := bluemonday.NewPolicy()

	var plain []string
	for _, tag := range tags {
		switch tag {
		case "a":
			p.AllowAttrs("href", "title").OnElements("a")
		case "abbr", "acronym":
			p.AllowAttrs("title").OnElements(tag)
			p.AllowNoAttrs().OnElements(tag)
		default:
			plain = append(plain, tag)
		}
	}
	if len(plain) > 0 {
		p.AllowElements(plain...)
	}

	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(true)
	return p
}

// Render converts raw Markdown to sanitized HTML.
func (r *Renderer) Render(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	html := r.md.RenderToString([]byte(raw))
	return r.policy.Sanitize(html)
}

var bodies = New(allowedTags)

// Sanitized renders a post or comment body. It is a pure function of raw.
func Sanitized(raw string) string {
	return bodies.Render(raw)
}
