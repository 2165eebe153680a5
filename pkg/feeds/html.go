// Package feeds provides crawler feeds backed by chat platform history APIs.
package feeds

import (
	"strings"

	"golang.org/x/net/html"
)

// StripHTML returns the text of an HTML fragment. Line breaks and paragraph
// ends become newlines. Input that cannot be parsed is returned unchanged.
func StripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	extractText(doc, &buf)
	return strings.TrimSpace(buf.String())
}

func extractText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	} else if n.Type == html.ElementNode && n.Data == "br" {
		buf.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, buf)
	}
	if n.Type == html.ElementNode && n.Data == "p" {
		buf.WriteString("\n")
	}
}
