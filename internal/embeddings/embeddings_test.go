package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

func TestFakeEmbedderDeterministic(t *testing.T) {
	f := NewFakeEmbedder(64)
	a, err := f.Embed(context.Background(), []string{"unit 01-101 rents for $1,511.00"})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := f.Embed(context.Background(), []string{"unit 01-101 rents for $1,511.00"})
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatal("same text must embed to the same vector")
		}
	}

	c, _ := f.Embed(context.Background(), []string{"completely different text"})
	same := true
	for i := range a[0] {
		if a[0][i] != c[0][i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different texts must not collide")
	}
}

func TestFakeEmbedderUnitNorm(t *testing.T) {
	f := NewFakeEmbedder(32)
	vs, err := f.Embed(context.Background(), []string{"lease agreement"})
	if err != nil {
		t.Fatal(err)
	}
	var norm float64
	for _, x := range vs[0] {
		norm += float64(x) * float64(x)
	}
	if norm < 0.99 || norm > 1.01 {
		t.Errorf("norm^2 = %v, want ~1", norm)
	}
}

func TestClassifyTransient(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		transient bool
	}{
		{"rate limited", &openai.APIError{HTTPStatusCode: 429}, true},
		{"server error", &openai.APIError{HTTPStatusCode: 503}, true},
		{"bad request", &openai.APIError{HTTPStatusCode: 400}, false},
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401}, false},
		{"network", errors.New("connection refused"), true},
	}
	for _, tc := range cases {
		got := errors.Is(classify(tc.err), ErrTransient)
		if got != tc.transient {
			t.Errorf("%s: transient = %v, want %v", tc.name, got, tc.transient)
		}
	}

	if !errors.Is(classify(&openai.APIError{HTTPStatusCode: 400}), ErrMalformedInput) {
		t.Error("400 should classify as malformed input")
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("invalid api key")
	err := retry(context.Background(), RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on permanent errors)", calls)
	}
}

func TestRetryRecoversFromTransient(t *testing.T) {
	calls := 0
	err := retry(context.Background(), RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.Join(ErrTransient, errors.New("throttled"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	calls := 0
	err := retry(context.Background(), RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}, func() error {
		calls++
		return errors.Join(ErrTransient, errors.New("still down"))
	})
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry(ctx, RetryConfig{MaxAttempts: 10, InitialDelay: 50 * time.Millisecond}, func() error {
		calls++
		cancel()
		return errors.Join(ErrTransient, errors.New("down"))
	})
	if err == nil {
		t.Fatal("expected abort")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in chain", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
