package htmlutil

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	// script and style contents are never prose
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// MainText returns the text of every <article> in the document joined by
// newlines, or the text of the whole document if it has no <article>.
// Plain text input is returned as is.
func MainText(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	articles := doc.Find("article")
	if articles.Length() == 0 {
		return GetText(doc.Get(0))
	}

	texts := make([]string, 0, articles.Length())
	for _, node := range articles.Nodes {
		texts = append(texts, GetText(node))
	}
	return strings.Join(texts, "\n")
}

// CodeAfter returns the text of every <code> element that directly follows
// (within the same paragraph) the given prefix text, in document order.
func CodeAfter(raw, prefix string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil
	}

	var out []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if !strings.Contains(p.Text(), prefix) {
			return
		}
		code := p.Find("code").First()
		if code.Length() == 0 {
			return
		}
		out = append(out, strings.TrimSpace(code.Text()))
	})
	return out
}
