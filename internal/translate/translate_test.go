package translate

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFunc(t *testing.T) {
	var tr Translator = Func(func(_ context.Context, text, src, dst string) (string, error) {
		return src + ">" + dst + ":" + text, nil
	})
	got, err := tr.Translate(context.Background(), "hi", "en", "fr")
	if err != nil || got != "en>fr:hi" {
		t.Errorf("Translate = %q, %v", got, err)
	}
}

func TestPrompt(t *testing.T) {
	p := Prompt("en", "ja")
	if !strings.Contains(p, "from en to ja") {
		t.Errorf("prompt missing languages: %q", p)
	}
	if !strings.Contains(p, "<:N>") {
		t.Errorf("prompt missing placeholder instruction: %q", p)
	}
}

func TestLimited_Delegates(t *testing.T) {
	var calls atomic.Int32
	next := Func(func(_ context.Context, text, _, _ string) (string, error) {
		calls.Add(1)
		return strings.ToUpper(text), nil
	})
	l := NewLimited(next, 0, 0)
	for i := 0; i < 5; i++ {
		if got, err := l.Translate(context.Background(), "abc", "en", "fr"); err != nil || got != "ABC" {
			t.Fatalf("Translate = %q, %v", got, err)
		}
	}
	if calls.Load() != 5 {
		t.Errorf("calls = %d, want 5", calls.Load())
	}
}

func TestLimited_RespectsContext(t *testing.T) {
	next := Func(func(_ context.Context, text, _, _ string) (string, error) { return text, nil })
	l := NewLimited(next, 0.001, 1)

	// First call consumes the only token.
	if _, err := l.Translate(context.Background(), "a", "en", "fr"); err != nil {
		t.Fatalf("first Translate: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Translate(ctx, "b", "en", "fr"); err == nil {
		t.Fatal("expected rate limit error")
	}
}

func TestTimed_PassesThroughErrors(t *testing.T) {
	want := errors.New("boom")
	tm := NewTimed(Func(func(context.Context, string, string, string) (string, error) { return "", want }))
	if _, err := tm.Translate(context.Background(), "x", "en", "fr"); !errors.Is(err, want) {
		t.Errorf("error = %v, want %v", err, want)
	}
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  hola \n", "hola"},
		{"```\nhola\n```", "hola"},
		{"```text\nhola <:0>\n```", "hola <:0>"},
		{"``` inline ```", "inline"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := CleanOutput(tt.in); got != tt.want {
			t.Errorf("CleanOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
