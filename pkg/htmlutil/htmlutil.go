package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

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
	// script and style contents are never part of the visible text
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || c == '\n' {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText strips non printable characters, trims and collapses runs of whitespace to a single space.
func CleanText(s string) string {
	s = removeNonPrintable(s)
	s = strings.TrimSpace(s)
	s = innerWhitespace.ReplaceAllString(s, " ")
	return s
}

// Text returns the cleaned text of every node in the selection, joined by a space.
func Text(sel *goquery.Selection) string {
	parts := make([]string, 0, len(sel.Nodes))
	for _, n := range sel.Nodes {
		text := CleanText(GetText(n))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// Lines returns each non-empty text node under the selection on its own line,
// in document order.
func Lines(sel *goquery.Selection) string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			line := CleanText(n.Data)
			if line != "" {
				lines = append(lines, line)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(lines, "\n")
}

// Each returns the cleaned text of every node in the selection separately, empty texts are dropped.
func Each(sel *goquery.Selection) []string {
	var out []string
	for _, n := range sel.Nodes {
		text := CleanText(GetText(n))
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}
