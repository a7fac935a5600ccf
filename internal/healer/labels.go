package healer

import (
	"strings"

	"golang.org/x/net/html"
)

// interactiveTags are the element types worth mining for structural labels.
var interactiveTags = map[string]bool{
	"a":        true,
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
}

// labelAttrs are the attributes that usually survive a frontend refactor,
// most stable first.
var labelAttrs = []string{"data-testid", "id", "name", "aria-label"}

// ExtractLabels mines an HTML snapshot for structural identifiers of
// interactive elements. The parse is best-effort: a malformed snapshot
// yields whatever labels were recoverable, never an error, since the DOM is
// secondary evidence on top of the visual scan.
func ExtractLabels(snapshot string) []string {
	if strings.TrimSpace(snapshot) == "" {
		return nil
	}

	root, err := html.Parse(strings.NewReader(snapshot))
	if err != nil {
		return nil
	}

	var labels []string
	seen := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && interactiveTags[n.Data] {
			if label := nodeLabel(n); label != "" && !seen[label] {
				seen[label] = true
				labels = append(labels, label)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return labels
}

// nodeLabel picks the best identifier for one element: a stable attribute if
// present, otherwise its trimmed text content.
func nodeLabel(n *html.Node) string {
	for _, want := range labelAttrs {
		for _, attr := range n.Attr {
			if attr.Key == want && strings.TrimSpace(attr.Val) != "" {
				return strings.TrimSpace(attr.Val)
			}
		}
	}
	return strings.TrimSpace(textContent(n))
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}
