package studio

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/ai-portrait-studio/internal/gemini"
	"github.com/fpang/ai-portrait-studio/internal/imgutil"
	"github.com/fpang/ai-portrait-studio/internal/jsonutil"
	"github.com/fpang/ai-portrait-studio/internal/metrics"
)

// ModelInvoker issues one model call against an ordered candidate chain.
// It is satisfied by gemini.Invoker; tests substitute scripted stubs.
type ModelInvoker interface {
	Invoke(ctx context.Context, candidates []string, parts []*genai.Part, config *genai.GenerateContentConfig) (*gemini.Response, error)
}

// Options configures an Engine. Zero iteration caps fall back to 3.
type Options struct {
	// AnalysisModels is the candidate chain for every text and JSON
	// producing call: analysis, design, and all reviews.
	AnalysisModels []string

	// GenerationModels is the candidate chain for image generation.
	GenerationModels []string

	MaxPromptIterations     int
	MaxGenerationIterations int
}

// Engine runs the portrait pipeline stages. It is safe for concurrent use;
// all state is read-only after construction.
type Engine struct {
	invoker          ModelInvoker
	analysisModels   []string
	generationModels []string

	maxPromptIterations     int
	maxGenerationIterations int
}

// NewEngine builds an Engine over the given invoker.
func NewEngine(invoker ModelInvoker, opts Options) *Engine {
	e := &Engine{
		invoker:                 invoker,
		analysisModels:          opts.AnalysisModels,
		generationModels:        opts.GenerationModels,
		maxPromptIterations:     opts.MaxPromptIterations,
		maxGenerationIterations: opts.MaxGenerationIterations,
	}
	if e.maxPromptIterations <= 0 {
		e.maxPromptIterations = 3
	}
	if e.maxGenerationIterations <= 0 {
		e.maxGenerationIterations = 3
	}
	return e
}

func imagePart(data []byte, mimeType string) *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}}
}

func textPart(text string) *genai.Part {
	return &genai.Part{Text: text}
}

// AnalyzePerson extracts the identity profile from the reference photo. The
// image is downscaled before upload; analysis does not need full resolution.
// Unparseable output is an error, since every later stage depends on the
// profile.
func (e *Engine) AnalyzePerson(ctx context.Context, imageData []byte, mimeType string) (*PersonProfile, error) {
	start := time.Now()
	scaled, scaledMIME := imgutil.ShrinkForAnalysis(imageData, mimeType, imgutil.DefaultAnalysisMaxDimension)

	resp, err := e.invoker.Invoke(ctx, e.analysisModels, []*genai.Part{
		imagePart(scaled, scaledMIME),
		textPart(BuildAnalyzePrompt()),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("person analysis: %w", err)
	}

	profile, err := jsonutil.ParseJSON[PersonProfile](resp.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: person analysis: %v", ErrInvalidModelJSON, err)
	}

	metrics.New().
		Dimension("Stage", "analyze").
		Metric("StageLatencyMs", float64(time.Since(start).Milliseconds()), metrics.UnitMilliseconds).
		Count("StageRuns").
		Flush()
	log.Info().
		Int("unique_features", len(profile.UniqueFeatures)).
		Dur("duration", time.Since(start)).
		Msg("Person analysis complete")

	return &profile, nil
}

// DesignPose produces the art direction for one pose. Like analysis, this is
// a mandatory-JSON stage.
func (e *Engine) DesignPose(ctx context.Context, person *PersonProfile, pose string) (*PoseDesign, error) {
	resp, err := e.invoker.Invoke(ctx, e.analysisModels, []*genai.Part{
		textPart(BuildDesignPrompt(person, pose)),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("pose design for %q: %w", pose, err)
	}

	design, err := jsonutil.ParseJSON[PoseDesign](resp.Text)
	if err != nil {
		return nil, fmt.Errorf("%w: pose design for %q: %v", ErrInvalidModelJSON, pose, err)
	}
	return &design, nil
}

// ReviewInput judges whether the uploaded reference photo is usable. The
// verdict fails open: a garbled review approves the photo.
func (e *Engine) ReviewInput(ctx context.Context, imageData []byte, mimeType string) (*ReviewResult, error) {
	scaled, scaledMIME := imgutil.ShrinkForAnalysis(imageData, mimeType, imgutil.DefaultAnalysisMaxDimension)

	resp, err := e.invoker.Invoke(ctx, e.analysisModels, []*genai.Part{
		imagePart(scaled, scaledMIME),
		textPart(BuildInputReviewPrompt()),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("input review: %w", err)
	}

	review := jsonutil.ParseOrDefault(resp.Text, *defaultInputReview())
	return &review, nil
}

// reviewPrompt judges a working generation prompt before any image is made.
// Fails open on unparseable output.
func (e *Engine) reviewPrompt(ctx context.Context, promptText, pose string, iteration int) (*ReviewResult, error) {
	resp, err := e.invoker.Invoke(ctx, e.analysisModels, []*genai.Part{
		textPart(BuildPromptReviewText(promptText, pose, iteration)),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("prompt review for %q: %w", pose, err)
	}

	review := jsonutil.ParseOrDefault(resp.Text, *defaultPromptReview(iteration))
	review.Iteration = iteration
	return &review, nil
}

// GenerateImage runs one image generation attempt against the full
// resolution reference. A reply without an inline image is ErrNoImageProduced,
// which the pipeline treats as retryable.
func (e *Engine) GenerateImage(ctx context.Context, refImage []byte, refMIME, promptText string) (*gemini.Response, error) {
	resp, err := e.invoker.Invoke(ctx, e.generationModels, []*genai.Part{
		imagePart(refImage, refMIME),
		textPart(promptText),
	}, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.ImageData) == 0 {
		return nil, ErrNoImageProduced
	}
	return resp, nil
}

// ReviewImage compares a generated image against the reference. Fails open
// on unparseable output.
func (e *Engine) ReviewImage(ctx context.Context, refImage []byte, refMIME string, genImage []byte, genMIME string, person *PersonProfile, pose string) (*ReviewResult, error) {
	scaledRef, scaledMIME := imgutil.ShrinkForAnalysis(refImage, refMIME, imgutil.DefaultAnalysisMaxDimension)

	resp, err := e.invoker.Invoke(ctx, e.analysisModels, []*genai.Part{
		imagePart(scaledRef, scaledMIME),
		imagePart(genImage, genMIME),
		textPart(BuildComparisonPrompt(person, pose)),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("image review for %q: %w", pose, err)
	}

	review := jsonutil.ParseOrDefault(resp.Text, *defaultImageReview())
	return &review, nil
}
