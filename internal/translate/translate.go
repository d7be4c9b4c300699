// Package translate defines the translation provider contract and the
// wrappers shared by every provider.
package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/polyglot/internal/telemetry"
	"golang.org/x/time/rate"
)

// Translator translates text between two language codes.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Func adapts a plain function to Translator.
type Func func(ctx context.Context, text, sourceLang, targetLang string) (string, error)

// Translate calls f.
func (f Func) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return f(ctx, text, sourceLang, targetLang)
}

// Prompt builds the instruction sent to LLM-backed providers. Placeholders of
// the form <:N> must come back untouched so they can be restored.
func Prompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(
		"Translate the user's chat message from %s to %s. "+
			"Keep every token of the form <:N> exactly as written and in a grammatically sensible position. "+
			"Keep markdown, URLs, and emoji unchanged. "+
			"Reply with the translated message only.",
		sourceLang, targetLang)
}

// Limited wraps a Translator with a token-bucket rate limit shared by every
// caller. Waiting honours ctx cancellation.
type Limited struct {
	next    Translator
	limiter *rate.Limiter
}

// NewLimited allows perSecond calls per second with the given burst. A
// non-positive perSecond disables limiting.
func NewLimited(next Translator, perSecond float64, burst int) *Limited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// Translate waits for a token and delegates to the wrapped Translator.
func (l *Limited) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("translate: rate limit: %w", err)
	}
	return l.next.Translate(ctx, text, sourceLang, targetLang)
}

// Timed records provider latency in the translate duration histogram.
type Timed struct {
	next Translator
}

// NewTimed wraps next with latency metrics.
func NewTimed(next Translator) *Timed {
	return &Timed{next: next}
}

// Translate delegates to the wrapped Translator and observes its latency.
func (t *Timed) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	start := time.Now()
	out, err := t.next.Translate(ctx, text, sourceLang, targetLang)
	telemetry.TranslateDuration.Observe(time.Since(start).Seconds())
	return out, err
}

// CleanOutput strips whitespace and a wrapping code fence some models add.
func CleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) >= 6 {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.Contains(s[:i], " ") {
			s = s[i+1:]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
