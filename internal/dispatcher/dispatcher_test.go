package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/local/vitanote/internal/ai"
)

type fakeClient struct {
	name string

	mu    sync.Mutex
	calls int
	errs  []error
	text  string
}

func (f *fakeClient) Name() string { return f.name }

func (f *fakeClient) Do(ctx context.Context, req ai.Request) (ai.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return ai.Response{}, err
		}
	}
	return ai.Response{Text: f.text}, nil
}

func newTestDispatcher(targets ...Target) *Dispatcher {
	d := New(Options{Targets: targets, MaxAttempts: 2, Breaker: NewLocalBreaker(3, time.Minute)})
	d.sleep = func(context.Context, time.Duration) error { return nil }
	return d
}

func TestCompleteNoProviders(t *testing.T) {
	if _, err := New(Options{}).Complete(context.Background(), "p"); !errors.Is(err, ErrNoProviders) {
		t.Fatalf("err = %v", err)
	}
}

func TestCompleteRetriesTransient(t *testing.T) {
	groq := &fakeClient{name: "groq", errs: []error{&ai.StatusError{Provider: "groq", StatusCode: 503}}, text: "ok"}
	d := newTestDispatcher(Target{Client: groq, Model: "m"})

	got, err := d.Complete(context.Background(), "p")
	if err != nil || got != "ok" {
		t.Fatalf("got %q, %v", got, err)
	}
	if groq.calls != 2 {
		t.Fatalf("calls = %d, want 2", groq.calls)
	}
}

func TestCompleteFailsOver(t *testing.T) {
	rl := &ai.StatusError{Provider: "groq", StatusCode: 429}
	groq := &fakeClient{name: "groq", errs: []error{rl, rl}}
	openai := &fakeClient{name: "openai", text: "from openai"}
	d := newTestDispatcher(Target{Client: groq, Model: "a"}, Target{Client: openai, Model: "b"})

	got, err := d.Complete(context.Background(), "p")
	if err != nil || got != "from openai" {
		t.Fatalf("got %q, %v", got, err)
	}
	if groq.calls != 2 || openai.calls != 1 {
		t.Fatalf("calls groq=%d openai=%d", groq.calls, openai.calls)
	}
}

func TestCompleteFatalStopsChain(t *testing.T) {
	groq := &fakeClient{name: "groq", errs: []error{&ai.StatusError{Provider: "groq", StatusCode: 401}}}
	openai := &fakeClient{name: "openai", text: "unused"}
	d := newTestDispatcher(Target{Client: groq, Model: "a"}, Target{Client: openai, Model: "b"})

	_, err := d.Complete(context.Background(), "p")
	var se *ai.StatusError
	if !errors.As(err, &se) || se.StatusCode != 401 {
		t.Fatalf("err = %v", err)
	}
	if groq.calls != 1 || openai.calls != 0 {
		t.Fatalf("calls groq=%d openai=%d", groq.calls, openai.calls)
	}
}

func TestLocalBreakerOpensAfterThreshold(t *testing.T) {
	b := NewLocalBreaker(2, time.Minute)
	fail := func() (ai.Response, error) { return ai.Response{}, &ai.StatusError{StatusCode: 500} }

	for i := 0; i < 2; i++ {
		if _, err := b.Execute(context.Background(), "groq", "m", fail); errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("call %d: breaker open too early", i)
		}
	}
	called := false
	_, err := b.Execute(context.Background(), "groq", "m", func() (ai.Response, error) {
		called = true
		return ai.Response{}, nil
	})
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("err = %v called = %v", err, called)
	}

	// other models are unaffected
	if _, err := b.Execute(context.Background(), "groq", "other", func() (ai.Response, error) { return ai.Response{}, nil }); err != nil {
		t.Fatalf("other model: %v", err)
	}
}

func TestLocalBreakerIgnoresFatal(t *testing.T) {
	b := NewLocalBreaker(1, time.Minute)
	_, _ = b.Execute(context.Background(), "groq", "m", func() (ai.Response, error) {
		return ai.Response{}, &ai.StatusError{StatusCode: 400}
	})
	if _, err := b.Execute(context.Background(), "groq", "m", func() (ai.Response, error) { return ai.Response{}, nil }); err != nil {
		t.Fatalf("fatal error tripped breaker: %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{context.DeadlineExceeded, "timeout"},
		{&ai.StatusError{StatusCode: 429}, "rate_limited"},
		{ai.ErrContentRefused, "content_refused"},
		{&ai.StatusError{StatusCode: 502}, "transient"},
		{&ai.StatusError{StatusCode: 403}, "fatal"},
		{fmt.Errorf("something odd"), "unknown"},
	}
	for _, c := range cases {
		if got := classify(c.err); got != c.want {
			t.Errorf("classify(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}
