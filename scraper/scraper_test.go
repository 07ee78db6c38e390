package scraper

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const samplePage = `<html><head><title>t</title><style>.x{}</style></head>
<body>
  <h1><span> Road Bike </span></h1>
  <div>Joined   Facebook in 2019</div>
  <script>var hidden = "12 listings";</script>
  <a href="/marketplace/profile/42/">Jane</a>
  <p>Line one</p><p>Line two</p>
</body></html>`

func TestHTMLDocumentQuery(t *testing.T) {
	doc, err := ParseHTMLString(samplePage)
	if err != nil {
		t.Fatal(err)
	}

	el, ok, err := doc.Query("h1 span")
	if err != nil || !ok {
		t.Fatalf("h1 span: ok=%v err=%v", ok, err)
	}
	if el.Text != "Road Bike" {
		t.Errorf("Text: got %q, want %q", el.Text, "Road Bike")
	}

	el, ok, _ = doc.Query(`a[href*="/marketplace/profile/"]`)
	if !ok || el.Href != "/marketplace/profile/42/" || el.Text != "Jane" {
		t.Errorf("profile link: got %+v ok=%v", el, ok)
	}

	if _, ok, _ := doc.Query(`[data-testid="missing"]`); ok {
		t.Error("missing selector should not match")
	}
}

func TestHTMLDocumentBadSelector(t *testing.T) {
	doc, _ := ParseHTMLString(samplePage)
	if _, _, err := doc.Query("a[href"); err == nil {
		t.Error("expected error for malformed selector")
	}
}

func TestHTMLDocumentBodyText(t *testing.T) {
	doc, _ := ParseHTMLString(samplePage)
	text, err := doc.BodyText()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(text, "hidden") {
		t.Errorf("script content leaked into body text: %q", text)
	}
	if !strings.Contains(text, "Joined Facebook in 2019") {
		t.Errorf("whitespace not collapsed: %q", text)
	}
	if !strings.Contains(text, "Line one\nLine two") {
		t.Errorf("block boundaries missing: %q", text)
	}
}

func TestWaitForImmediate(t *testing.T) {
	calls := 0
	err := WaitFor(context.Background(), "ready", time.Second, time.Millisecond, func() (bool, error) {
		calls++
		return true, nil
	})
	if err != nil || calls != 1 {
		t.Errorf("got err=%v calls=%d, want nil/1", err, calls)
	}
}

func TestWaitForEventually(t *testing.T) {
	var calls int32
	err := WaitFor(context.Background(), "ready", time.Second, time.Millisecond, func() (bool, error) {
		return atomic.AddInt32(&calls, 1) >= 3, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForTimeout(t *testing.T) {
	err := WaitFor(context.Background(), "element #badge", 20*time.Millisecond, 5*time.Millisecond, func() (bool, error) {
		return false, nil
	})
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if te.Description != "element #badge" {
		t.Errorf("Description: got %q", te.Description)
	}
	if !strings.Contains(err.Error(), "#badge") {
		t.Errorf("error should name the selector: %v", err)
	}
}

func TestWaitForPredicateError(t *testing.T) {
	boom := errors.New("tab closed")
	err := WaitFor(context.Background(), "x", time.Second, time.Millisecond, func() (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected predicate error, got %v", err)
	}
}

func TestWaitForContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitFor(ctx, "x", time.Second, time.Millisecond, func() (bool, error) { return false, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForElement(t *testing.T) {
	doc, _ := ParseHTMLString(samplePage)
	el, err := WaitForElement(context.Background(), doc, "h1 span", 50*time.Millisecond)
	if err != nil || el.Text != "Road Bike" {
		t.Errorf("got %+v err=%v", el, err)
	}

	_, err = WaitForElement(context.Background(), doc, "#nope", 20*time.Millisecond)
	var te *TimeoutError
	if !errors.As(err, &te) || !strings.Contains(te.Description, "#nope") {
		t.Errorf("expected timeout naming #nope, got %v", err)
	}
}
