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
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// StripNewlines removes every embedded newline, other whitespace is kept as is.
func StripNewlines(s string) string {
	return strings.ReplaceAll(s, "\n", "")
}

// FirstText returns the text of the first node in `sel` with newlines
// stripped, and false when the selection is empty.
func FirstText(sel *goquery.Selection) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	return StripNewlines(GetText(sel.Nodes[0])), true
}

// FirstAttr returns the attribute of the first node in `sel`.
func FirstAttr(sel *goquery.Selection, attr string) (string, bool) {
	if sel.Length() == 0 {
		return "", false
	}
	return sel.First().Attr(attr)
}

// LastPathSegment returns whatever follows the final '/' of an href.
func LastPathSegment(href string) string {
	idx := strings.LastIndexByte(href, '/')
	return href[idx+1:]
}
