package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// HTMLDocument is a Document over a static HTML snapshot, such as a saved
// listing page.
type HTMLDocument struct {
	doc *goquery.Document
}

// ParseHTML reads an HTML page into a Document.
func ParseHTML(r io.Reader) (*HTMLDocument, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return &HTMLDocument{doc: goquery.NewDocumentFromNode(root)}, nil
}

// ParseHTMLString is ParseHTML for in-memory markup.
func ParseHTMLString(s string) (*HTMLDocument, error) {
	return ParseHTML(strings.NewReader(s))
}

func (d *HTMLDocument) Query(selector string) (Element, bool, error) {
	sel, err := d.find(selector)
	if err != nil {
		return Element{}, false, err
	}
	if sel.Length() == 0 {
		return Element{}, false, nil
	}
	first := sel.First()
	href, _ := first.Attr("href")
	return Element{Text: strings.TrimSpace(innerText(first.Get(0))), Href: href}, true, nil
}

func (d *HTMLDocument) Exists(selector string) (bool, error) {
	sel, err := d.find(selector)
	if err != nil {
		return false, err
	}
	return sel.Length() > 0, nil
}

func (d *HTMLDocument) BodyText() (string, error) {
	body := d.doc.Find("body")
	if body.Length() == 0 {
		return innerText(d.doc.Get(0)), nil
	}
	return innerText(body.Get(0)), nil
}

// find compiles selector itself; goquery silently matches nothing on a
// malformed selector.
func (d *HTMLDocument) find(selector string) (*goquery.Selection, error) {
	if _, err := cascadia.Compile(selector); err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}
	return d.doc.Find(selector), nil
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "header": true, "hr": true, "li": true,
	"main": true, "nav": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "tr": true, "ul": true,
}

// innerText approximates the browser's innerText: script and style are
// skipped and block boundaries become newlines.
func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte('\n')
		}
	}
	if n != nil {
		walk(n)
	}

	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
