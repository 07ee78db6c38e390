// Package scraper holds the document abstraction the extractor reads from
// and the bounded wait used while a page is still rendering.
package scraper

// Element is the subset of a DOM element the extractor needs.
type Element struct {
	Text string
	Href string
}

// Document is a queryable page. Selectors are CSS selectors.
// Query reports ok=false when nothing matches; err is reserved for failures
// of the document itself, such as a closed browser tab.
type Document interface {
	Query(selector string) (el Element, ok bool, err error)
	Exists(selector string) (bool, error)
	BodyText() (string, error)
}
