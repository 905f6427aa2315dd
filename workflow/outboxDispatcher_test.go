package workflow

import (
	"context"
	"testing"
	"time"
)

func TestDispatcherBackoff(t *testing.T) {
	d := &OutboxDispatcher{InitialBackoff: 5 * time.Second}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Second},
		{1, 5 * time.Second},
		{2, 10 * time.Second},
		{3, 20 * time.Second},
		{7, 320 * time.Second},
		{8, maxPublishBackoff},
		{50, maxPublishBackoff},
	}
	for _, tc := range cases {
		if got := d.backoff(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: got %s want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestDispatcherExhausted(t *testing.T) {
	d := &OutboxDispatcher{MaxAttempts: 3}
	if d.exhausted(2) {
		t.Fatalf("2 attempts should not be exhausted")
	}
	if !d.exhausted(3) {
		t.Fatalf("3 attempts should be exhausted")
	}
	unlimited := &OutboxDispatcher{}
	if unlimited.exhausted(1000) {
		t.Fatalf("MaxAttempts 0 never exhausts")
	}
}

func TestDispatchOnceWithoutDB(t *testing.T) {
	d := &OutboxDispatcher{}
	sent, err := d.DispatchOnce(context.Background())
	if err != nil || sent != 0 {
		t.Fatalf("got sent=%d err=%v", sent, err)
	}
}
