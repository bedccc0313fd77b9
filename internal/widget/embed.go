package widget

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ValidateEmbedCode checks that the generated snippet is structurally sound:
// well-formed markup containing either a script tag with a src or an iframe
// pointing at the widget host. Substring checks are not enough here; the
// generator has previously produced snippets with unbalanced quoting that
// only a real parser catches.
func ValidateEmbedCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("embed code is empty")
	}

	nodes, err := html.ParseFragment(strings.NewReader(code), bodyContext())
	if err != nil {
		return fmt.Errorf("embed code does not parse as HTML: %w", err)
	}

	for _, n := range nodes {
		if src, ok := findEmbedSource(n); ok {
			if !strings.HasPrefix(src, "https://") {
				return fmt.Errorf("embed source %q is not https", src)
			}
			return nil
		}
	}
	return fmt.Errorf("embed code contains neither a script with src nor an iframe")
}

// bodyContext builds the parse context node so fragments parse the way they
// would inside a page body.
func bodyContext() *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
}

// findEmbedSource walks the node tree for a script or iframe element and
// returns its src attribute.
func findEmbedSource(n *html.Node) (string, bool) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "iframe") {
		for _, attr := range n.Attr {
			if attr.Key == "src" && attr.Val != "" {
				return attr.Val, true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if src, ok := findEmbedSource(c); ok {
			return src, ok
		}
	}
	return "", false
}
