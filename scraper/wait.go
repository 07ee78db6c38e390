package scraper

import (
	"context"
	"fmt"
	"time"
)

// DefaultWaitTimeout bounds WaitForElement when no timeout is given.
const DefaultWaitTimeout = 5 * time.Second

const defaultPollInterval = 100 * time.Millisecond

// TimeoutError reports that a waited-for condition never held.
type TimeoutError struct {
	Description string
	Timeout     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s not found within %v", e.Description, e.Timeout)
}

// WaitFor polls predicate until it returns true, fails, or timeout elapses.
// The predicate is checked once immediately. A predicate error aborts the wait.
func WaitFor(ctx context.Context, description string, timeout, interval time.Duration, predicate func() (bool, error)) error {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ok, err := predicate()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return &TimeoutError{Description: description, Timeout: timeout}
		case <-ticker.C:
			ok, err := predicate()
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
	}
}

// WaitForElement waits until selector matches in doc and returns the match.
func WaitForElement(ctx context.Context, doc Document, selector string, timeout time.Duration) (Element, error) {
	var found Element
	err := WaitFor(ctx, "element "+selector, timeout, 0, func() (bool, error) {
		el, ok, err := doc.Query(selector)
		if ok {
			found = el
		}
		return ok, err
	})
	return found, err
}
