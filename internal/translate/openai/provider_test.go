package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/responses"
)

type fakeResponder struct {
	got  responses.ResponseNewParams
	out  string
	err  error
	hits int
}

func (f *fakeResponder) respond(_ context.Context, body responses.ResponseNewParams) (string, error) {
	f.hits++
	f.got = body
	return f.out, f.err
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(ProviderConfig{APIKey: "  "})
	if err == nil || !strings.Contains(err.Error(), "api key is required") {
		t.Errorf("error = %v", err)
	}
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New(ProviderConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != DefaultModel {
		t.Errorf("model = %q, want %q", p.model, DefaultModel)
	}
}

func TestTranslate(t *testing.T) {
	f := &fakeResponder{out: "  bonjour <:0>\n"}
	p := newProvider(f, "gpt-test")

	got, err := p.Translate(context.Background(), "hello <:0>", "en", "fr")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "bonjour <:0>" {
		t.Errorf("Translate = %q, want %q", got, "bonjour <:0>")
	}
	if f.got.Model != "gpt-test" {
		t.Errorf("model = %q", f.got.Model)
	}
	if f.got.Input.OfString.Value != "hello <:0>" {
		t.Errorf("input = %q", f.got.Input.OfString.Value)
	}
	if !strings.Contains(f.got.Instructions.Value, "from en to fr") {
		t.Errorf("instructions = %q", f.got.Instructions.Value)
	}
}

func TestTranslate_BlankTextSkipsCall(t *testing.T) {
	f := &fakeResponder{}
	p := newProvider(f, "")
	got, err := p.Translate(context.Background(), "   ", "en", "fr")
	if err != nil || got != "   " {
		t.Errorf("Translate = %q, %v", got, err)
	}
	if f.hits != 0 {
		t.Errorf("hits = %d, want 0", f.hits)
	}
}

func TestTranslate_Errors(t *testing.T) {
	p := newProvider(&fakeResponder{err: errors.New("429 too many requests")}, "")
	if _, err := p.Translate(context.Background(), "hi", "en", "ja"); err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v", err)
	}

	p = newProvider(&fakeResponder{out: "   "}, "")
	if _, err := p.Translate(context.Background(), "hi", "en", "ja"); err == nil || !strings.Contains(err.Error(), "empty response") {
		t.Errorf("error = %v", err)
	}
}
