package scraper

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueue_PushThenPull(t *testing.T) {
	var q Queue[string]
	q.Push("P1")
	q.Push("P2")

	ctx := context.Background()
	for _, want := range []string{"P1", "P2"} {
		got, err := q.Pull(ctx)
		if err != nil {
			t.Fatalf("Pull() returned an error: %v", err)
		}
		if got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d items", q.Len())
	}
}

func TestQueue_PullBeforePush(t *testing.T) {
	var q Queue[string]
	result := make(chan string)

	go func() {
		got, err := q.Pull(context.Background())
		if err != nil {
			t.Errorf("Pull() returned an error: %v", err)
		}
		result <- got
	}()

	waitForWaiters(t, &q, 1)
	q.Push("P1")

	select {
	case got := <-result:
		if got != "P1" {
			t.Errorf("Expected pending pull to receive P1, got %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending pull was never fulfilled")
	}
}

func TestQueue_PendingPullsServedInOrder(t *testing.T) {
	var q Queue[int]
	first := make(chan int)
	second := make(chan int)

	go func() {
		v, _ := q.Pull(context.Background())
		first <- v
	}()
	waitForWaiters(t, &q, 1)
	go func() {
		v, _ := q.Pull(context.Background())
		second <- v
	}()
	waitForWaiters(t, &q, 2)

	q.Push(1)
	q.Push(2)

	if v := <-first; v != 1 {
		t.Errorf("Expected first pull to get 1, got %d", v)
	}
	if v := <-second; v != 2 {
		t.Errorf("Expected second pull to get 2, got %d", v)
	}
}

func TestQueue_CancelledPullLosesNothing(t *testing.T) {
	var q Queue[string]
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)

	go func() {
		_, err := q.Pull(ctx)
		done <- err
	}()
	waitForWaiters(t, &q, 1)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	q.Push("P1")
	got, err := q.Pull(context.Background())
	if err != nil || got != "P1" {
		t.Errorf("Expected P1 after a cancelled pull, got %q (err=%v)", got, err)
	}
}

func TestQueue_AbandonRequeuesDeliveredItem(t *testing.T) {
	var q Queue[string]
	q.Push("P2")

	// Simulate a Push racing a cancellation: the waiter was already removed
	// and handed P1.
	w := make(chan string, 1)
	w <- "P1"
	q.abandon(w)

	for _, want := range []string{"P1", "P2"} {
		got, _ := q.Pull(context.Background())
		if got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
}

func waitForWaiters[T any](t *testing.T, q *Queue[T], n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		q.mu.Lock()
		waiting := len(q.waiters)
		q.mu.Unlock()
		if waiting >= n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d pending pulls", n)
}
