package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-portrait-studio/internal/metrics"
)

// pipelineState enumerates the steps of one pose pipeline. The pipeline is
// a flat state machine rather than nested retry loops so every transition
// is explicit and each counter advances in exactly one place.
type pipelineState int

const (
	stateBuildPrompt pipelineState = iota
	stateReviewPrompt
	stateGenerateImage
	stateReviewImage
	stateDone
	stateFailed
)

func (s pipelineState) String() string {
	switch s {
	case stateBuildPrompt:
		return "build_prompt"
	case stateReviewPrompt:
		return "review_prompt"
	case stateGenerateImage:
		return "generate_image"
	case stateReviewImage:
		return "review_image"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

// ProcessPose runs the full quality-gated pipeline for a single pose.
//
// The prompt-quality cycle is bounded by maxPromptIterations: each cycle
// reviews the working prompt and either proceeds to generation or refines
// and reviews again. The final cycle always proceeds even when rejected.
// Generation is bounded per cycle by
// maxGenerationIterations: each attempt generates an image and reviews it
// against the reference, accepting on first approval and otherwise retrying
// with the same prompt. When a generation cycle exhausts unapproved and
// prompt cycles remain, the image review's feedback refines the prompt and
// one more prompt cycle is consumed.
//
// GenerationIterations counts attempts across all cycles and never resets.
// The last generated image is always returned, approved or not, even when a
// later stage call fails; the pipeline fails only when no image was ever
// produced.
func (e *Engine) ProcessPose(ctx context.Context, refImage []byte, refMIME, pose string, person *PersonProfile) (*GeneratedPhoto, error) {
	start := time.Now()

	var (
		state       = stateBuildPrompt
		promptText  string
		promptIters int
		genIters    int
		attempts    int // within the current generation cycle
		genData     []byte
		genMIME     string

		// Last reviewed image. Set only after an image review; the photo
		// itself is assembled once, at return time, so the counters it
		// carries are final.
		lastData   []byte
		lastMIME   string
		lastReview *ReviewResult
	)

	snapshot := func() *GeneratedPhoto {
		return &GeneratedPhoto{
			ID:                   uuid.NewString(),
			Pose:                 pose,
			ImageData:            lastData,
			ImageMIME:            lastMIME,
			Review:               lastReview,
			PromptIterations:     promptIters,
			GenerationIterations: genIters,
			Approved:             lastReview.IsApproved(),
		}
	}

	logPose := log.With().Str("pose", pose).Logger()

	for state != stateDone && state != stateFailed {
		// Cancellation between states returns the best photo produced so
		// far instead of discarding completed work.
		if err := ctx.Err(); err != nil {
			if lastReview != nil {
				logPose.Warn().Err(err).Msg("Context cancelled, returning last generated photo")
				return snapshot(), nil
			}
			return nil, err
		}

		logPose.Debug().Stringer("state", state).
			Int("prompt_iterations", promptIters).
			Int("generation_iterations", genIters).
			Msg("Pipeline transition")

		switch state {
		case stateBuildPrompt:
			design, err := e.DesignPose(ctx, person, pose)
			if err != nil {
				return nil, err
			}
			promptText = BuildGenerationPrompt(person, design, pose)
			state = stateReviewPrompt

		case stateReviewPrompt:
			promptIters++
			review, err := e.reviewPrompt(ctx, promptText, pose, promptIters)
			if err != nil {
				if lastReview != nil {
					logPose.Warn().Err(err).Msg("Prompt review failed, returning last generated photo")
					return snapshot(), nil
				}
				return nil, err
			}
			if !review.IsApproved() && promptIters < e.maxPromptIterations {
				promptText = RefinePromptText(promptText, review)
				continue
			}
			if !review.IsApproved() {
				logPose.Warn().
					Int("score", review.OverallScore).
					Msg("Prompt not approved after final review, generating anyway")
			}
			attempts = 0
			state = stateGenerateImage

		case stateGenerateImage:
			if attempts >= e.maxGenerationIterations {
				// Generation cycle exhausted without approval. Spend
				// another prompt cycle on the image review's feedback if
				// any remain, otherwise settle for what we have.
				if promptIters >= e.maxPromptIterations {
					if lastReview != nil {
						state = stateDone
					} else {
						state = stateFailed
					}
					continue
				}
				promptText = RefinePromptText(promptText, lastReview)
				state = stateReviewPrompt
				continue
			}
			attempts++
			genIters++
			resp, err := e.GenerateImage(ctx, refImage, refMIME, promptText)
			if errors.Is(err, ErrNoImageProduced) {
				logPose.Warn().Int("attempt", genIters).Msg("No image in response, retrying generation")
				continue
			}
			if err != nil {
				if lastReview != nil {
					logPose.Warn().Err(err).Msg("Generation failed, returning last generated photo")
					return snapshot(), nil
				}
				return nil, fmt.Errorf("image generation for %q: %w", pose, err)
			}
			genData, genMIME = resp.ImageData, resp.ImageMIME
			state = stateReviewImage

		case stateReviewImage:
			review, err := e.ReviewImage(ctx, refImage, refMIME, genData, genMIME, person, pose)
			if err != nil {
				if lastReview != nil {
					logPose.Warn().Err(err).Msg("Image review failed, returning last generated photo")
					return snapshot(), nil
				}
				return nil, err
			}
			lastData, lastMIME, lastReview = genData, genMIME, review
			if review.IsApproved() {
				state = stateDone
			} else {
				logPose.Info().
					Int("score", review.OverallScore).
					Int("attempt", genIters).
					Msg("Generated image rejected, retrying")
				state = stateGenerateImage
			}
		}
	}

	if state == stateFailed {
		metrics.New().
			Dimension("Pose", pose).
			Count("PoseFailures").
			Flush()
		return nil, fmt.Errorf("%w: no image produced for %q after %d attempts", ErrGenerationFailed, pose, genIters)
	}

	photo := snapshot()

	elapsed := time.Since(start)
	metrics.New().
		Dimension("Pose", pose).
		Metric("PoseLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Metric("PromptIterations", float64(promptIters), metrics.UnitCount).
		Metric("GenerationIterations", float64(genIters), metrics.UnitCount).
		Count("PoseCompletions").
		Property("approved", photo.Approved).
		Flush()
	logPose.Info().
		Bool("approved", photo.Approved).
		Int("prompt_iterations", promptIters).
		Int("generation_iterations", genIters).
		Dur("duration", elapsed).
		Msg("Pose pipeline complete")

	return photo, nil
}
