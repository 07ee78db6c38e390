package marketplace

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBoundContextEndsWithCaller(t *testing.T) {
	caller, cancelCaller := context.WithCancel(context.Background())
	ctx, cancel := boundContext(context.Background(), caller, time.Hour)
	defer cancel()

	if ctx.Err() != nil {
		t.Fatalf("fresh context already done: %v", ctx.Err())
	}
	cancelCaller()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("cancelling the caller should end the query context")
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("err: got %v, want context.Canceled", ctx.Err())
	}
}

func TestBoundContextEndsWithTab(t *testing.T) {
	tab, closeTab := context.WithCancel(context.Background())
	ctx, cancel := boundContext(tab, context.Background(), time.Hour)
	defer cancel()

	closeTab()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("closing the tab should end the query context")
	}
}

func TestBoundContextTimesOut(t *testing.T) {
	ctx, cancel := boundContext(context.Background(), context.Background(), 10*time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("query context should time out")
	}
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Errorf("err: got %v, want context.DeadlineExceeded", ctx.Err())
	}
}

func TestBoundContextCancelDetachesCaller(t *testing.T) {
	caller, cancelCaller := context.WithCancel(context.Background())
	defer cancelCaller()
	ctx, cancel := boundContext(context.Background(), caller, time.Hour)
	cancel()

	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("err: got %v, want context.Canceled", ctx.Err())
	}
	if caller.Err() != nil {
		t.Error("releasing the query context must not cancel the caller")
	}
}
