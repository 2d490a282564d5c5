package testutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses a rendered page or fragment. An empty body, such as a 204 or a
// redirect, yields an empty document.
func ParseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

// AttrValues collects attr from every element matching selector, in document order.
func AttrValues(doc *goquery.Document, selector, attr string) []string {
	var values []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		values = append(values, s.AttrOr(attr, ""))
	})
	return values
}

// TrimmedText returns the collapsed text of the elements matching selector.
func TrimmedText(doc *goquery.Document, selector string) string {
	return strings.Join(strings.Fields(doc.Find(selector).Text()), " ")
}
