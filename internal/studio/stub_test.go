package studio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/genai"

	"github.com/fpang/ai-portrait-studio/internal/gemini"
)

// Canned model outputs used across the pipeline tests.
const (
	testProfileJSON = `{"race":"East Asian","skinTone":"warm undertone","gender":"female","age":"30-40",` +
		`"faceShape":"oval","uniqueFeatures":["round tortoiseshell glasses","shoulder-length black hair"],` +
		`"preservationPoints":["keep glasses identical"],"lighting":"soft window light","expression":"neutral"}`

	testDesignJSON = `{"makeup":{"base":"natural","eyes":"subtle","lips":"neutral","blush":"light"},` +
		`"styling":{"clothing":"navy suit jacket over white dress shirt","colors":"navy and white","accessories":"none"},` +
		`"posture":{"description":"front facing","headAngle":"level","shoulderPosition":"slight angle","expression":"confident"},` +
		`"lighting":{"type":"butterfly","position":"45 degrees","background":"gray gradient"}}`
)

func reviewJSON(score int, approved bool, suggestions ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `{"overallScore":%d,"approved":%t,"summary":"assessment"`, score, approved)
	if len(suggestions) > 0 {
		sb.WriteString(`,"suggestions":["` + strings.Join(suggestions, `","`) + `"]`)
	}
	sb.WriteString("}")
	return sb.String()
}

// classifyCall identifies which stage issued an invoker call from the parts
// and config it passed.
func classifyCall(parts []*genai.Part, config *genai.GenerateContentConfig) string {
	if config != nil && len(config.ResponseModalities) > 0 {
		return "generate"
	}
	text := lastText(parts)
	switch {
	case strings.Contains(text, "extract detailed person information"):
		return "analyze"
	case strings.Contains(text, "Design professional photo setup"):
		return "design"
	case strings.Contains(text, "Review this prompt"):
		return "promptReview"
	case strings.Contains(text, "Compare the REFERENCE image"):
		return "imageReview"
	case strings.Contains(text, "Review this input photo"):
		return "inputReview"
	}
	return "unknown"
}

func lastText(parts []*genai.Part) string {
	var text string
	for _, p := range parts {
		if p != nil && p.Text != "" {
			text = p.Text
		}
	}
	return text
}

// stageInvoker is a scripted ModelInvoker. Calls are classified by stage;
// each stage either runs its configured respond func (receiving the 1-based
// call number and the prompt text) or falls back to an approving default.
type stageInvoker struct {
	mu      sync.Mutex
	calls   map[string]int
	prompts map[string][]string

	respond map[string]func(n int, text string) (*gemini.Response, error)

	// delay plus the active counters measure peak concurrency.
	delay     time.Duration
	active    int32
	maxActive int32
}

func (s *stageInvoker) Invoke(_ context.Context, _ []string, parts []*genai.Part, config *genai.GenerateContentConfig) (*gemini.Response, error) {
	kind := classifyCall(parts, config)
	text := lastText(parts)

	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	if s.prompts == nil {
		s.prompts = make(map[string][]string)
	}
	s.calls[kind]++
	n := s.calls[kind]
	s.prompts[kind] = append(s.prompts[kind], text)
	fn := s.respond[kind]
	s.mu.Unlock()

	if s.delay > 0 {
		cur := atomic.AddInt32(&s.active, 1)
		for {
			max := atomic.LoadInt32(&s.maxActive)
			if cur <= max || atomic.CompareAndSwapInt32(&s.maxActive, max, cur) {
				break
			}
		}
		time.Sleep(s.delay)
		atomic.AddInt32(&s.active, -1)
	}

	if fn != nil {
		return fn(n, text)
	}
	return defaultStageResponse(kind)
}

func (s *stageInvoker) callCount(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

func (s *stageInvoker) promptTexts(kind string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts[kind]...)
}

func defaultStageResponse(kind string) (*gemini.Response, error) {
	switch kind {
	case "analyze":
		return &gemini.Response{Text: testProfileJSON}, nil
	case "design":
		return &gemini.Response{Text: testDesignJSON}, nil
	case "promptReview", "imageReview", "inputReview":
		return &gemini.Response{Text: reviewJSON(90, true)}, nil
	case "generate":
		return &gemini.Response{
			Text:      "generated",
			ImageData: []byte("png-bytes"),
			ImageMIME: "image/png",
		}, nil
	}
	return nil, fmt.Errorf("unexpected call kind %q", kind)
}

func newTestEngine(inv ModelInvoker) *Engine {
	return NewEngine(inv, Options{
		AnalysisModels:          []string{"analysis-model"},
		GenerationModels:        []string{"generation-model"},
		MaxPromptIterations:     3,
		MaxGenerationIterations: 3,
	})
}

var testRefImage = []byte("reference-jpeg-bytes")
