package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-portrait-studio/internal/metrics"
	"google.golang.org/genai"
)

// ErrNoAvailableModel is returned when the candidate list is exhausted
// without any model accepting the call.
var ErrNoAvailableModel = errors.New("no available model")

// Invoker tries model candidates strictly in order. A quota or rate-limit
// failure moves on to the next candidate; any other failure aborts
// immediately and surfaces to the caller.
type Invoker struct {
	caller Caller
}

// NewInvoker wraps a Caller with fallback-chain behavior.
func NewInvoker(caller Caller) *Invoker {
	return &Invoker{caller: caller}
}

// Invoke walks the candidate list until one model accepts the call.
// Exhausting every candidate returns the last quota error wrapped with
// ErrNoAvailableModel; an empty candidate list returns ErrNoAvailableModel
// alone.
func (iv *Invoker) Invoke(ctx context.Context, candidates []string, parts []*genai.Part, config *genai.GenerateContentConfig) (*Response, error) {
	var lastErr error

	for _, model := range candidates {
		start := time.Now()
		resp, err := iv.caller.GenerateContent(ctx, model, parts, config)
		elapsed := time.Since(start)

		m := metrics.New().
			Dimension("Model", model).
			Metric("GeminiApiLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
			Count("GeminiApiCalls")

		if err == nil {
			m.Flush()
			return resp, nil
		}
		m.Count("GeminiApiErrors")

		if !IsQuotaOrRateLimit(err) {
			m.Flush()
			return nil, err
		}

		m.Count("QuotaFallbacks")
		m.Flush()
		log.Warn().
			Err(err).
			Str("model", model).
			Dur("duration", elapsed).
			Msg("Model quota exhausted, trying next candidate")
		lastErr = err
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoAvailableModel, lastErr)
	}
	return nil, ErrNoAvailableModel
}

// IsQuotaOrRateLimit classifies an error as a transient quota or rate-limit
// rejection worth falling through to the next candidate for. Matching is on
// the message text because the SDK surfaces HTTP-level failures as opaque
// errors.
func IsQuotaOrRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(strings.ToLower(msg), "quota")
}
