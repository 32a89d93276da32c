// Package api terminates the HTTP boundary: CORS, request authentication,
// invite-code entitlement, action dispatch, and the mapping from pipeline
// errors to the client-facing error taxonomy.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-portrait-studio/internal/auth"
	"github.com/fpang/ai-portrait-studio/internal/config"
	"github.com/fpang/ai-portrait-studio/internal/invite"
	"github.com/fpang/ai-portrait-studio/internal/metrics"
	"github.com/fpang/ai-portrait-studio/internal/studio"
)

// maxBodyBytes bounds an inbound request body. Reference photos arrive
// base64-encoded inside the JSON envelope, so the cap is generous.
const maxBodyBytes = 32 << 20

// Handler serves the portrait API on a single POST endpoint with an action
// field selecting the operation.
type Handler struct {
	cfg      *config.Config
	verifier *auth.Verifier
	invites  *invite.Store
	engine   *studio.Engine
}

// NewHandler wires the boundary checks and the pipeline engine together.
func NewHandler(cfg *config.Config, verifier *auth.Verifier, invites *invite.Store, engine *studio.Engine) *Handler {
	return &Handler{cfg: cfg, verifier: verifier, invites: invites, engine: engine}
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, X-Signature, X-Timestamp, X-Action")
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, KindValidationFailure, "POST only")
		return
	}

	// Misconfiguration is surfaced per request rather than crashing the
	// process, so a partially configured deployment stays diagnosable.
	if h.cfg.APIKey == "" {
		writeError(w, KindUpstreamUnavailable, "missing API key")
		return
	}
	if len(h.cfg.InviteCodes) == 0 {
		writeError(w, KindUpstreamUnavailable, "missing invite codes")
		return
	}

	bodyText, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, KindValidationFailure, "unreadable body")
		return
	}

	signature := r.Header.Get("X-Signature")
	timestamp := r.Header.Get("X-Timestamp")
	if err := h.verifier.Verify(signature, timestamp, string(bodyText)); err != nil {
		writeError(w, KindAuthFailure, err.Error())
		return
	}

	var body requestBody
	if err := json.Unmarshal(bodyText, &body); err != nil {
		writeError(w, KindValidationFailure, "malformed JSON body")
		return
	}

	// The body carries its own timestamp copy; a mismatch with the signed
	// header means the body was swapped under a valid signature.
	if body.Timestamp != "" && body.Timestamp != timestamp {
		writeError(w, KindAuthFailure, "timestamp mismatch")
		return
	}

	if !h.invites.Validate(body.Code) {
		log.Warn().Str("action", body.Action).Msg("Invalid invite code")
		writeError(w, KindEntitlementFailure, "invalid invite code")
		return
	}
	h.invites.RecordUse(body.Code)

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	result, err := h.dispatch(ctx, &body)
	elapsed := time.Since(start)

	m := metrics.New().
		Dimension("Action", body.Action).
		Metric("RequestLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("Requests")
	if err != nil {
		kind := classifyError(err)
		var ve *validationError
		if errors.As(err, &ve) {
			kind = KindValidationFailure
		}
		m.Count("RequestErrors").Property("error", string(kind)).Flush()
		log.Error().Err(err).Str("action", body.Action).Dur("duration", elapsed).Msg("Request failed")
		writeError(w, kind, err.Error())
		return
	}
	m.Flush()

	log.Info().Str("action", body.Action).Dur("duration", elapsed).Msg("Request complete")
	writeJSON(w, http.StatusOK, map[string]any{"result": result, "action": body.Action})
}

// validationError marks dispatch failures caused by the request rather than
// the pipeline.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func invalidRequest(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// dispatch routes one authenticated, entitled request to its action.
func (h *Handler) dispatch(ctx context.Context, body *requestBody) (any, error) {
	switch body.Action {
	case "analyze":
		img, mime, err := decodeImage(body.Image)
		if err != nil {
			return nil, invalidRequest("analyze: %v", err)
		}
		return h.engine.AnalyzePerson(ctx, img, mime)

	case "design":
		p, err := decodeData[designPayload](body.Data)
		if err != nil {
			return nil, invalidRequest("design: %v", err)
		}
		return h.engine.DesignPose(ctx, p.Person, poseOrDefault(p.PhotoType))

	case "generate":
		return h.handleGenerate(ctx, body)

	case "review":
		return h.handleReview(ctx, body)

	case "reviewInput":
		img, mime, err := decodeImage(body.Image)
		if err != nil {
			return nil, invalidRequest("reviewInput: %v", err)
		}
		return h.engine.ReviewInput(ctx, img, mime)

	case "processAll":
		return h.handleProcessAll(ctx, body)

	case "processPose":
		return h.handleProcessPose(ctx, body)
	}

	return nil, invalidRequest("unknown action %q", body.Action)
}

func (h *Handler) handleGenerate(ctx context.Context, body *requestBody) (any, error) {
	p, err := decodeData[generatePayload](body.Data)
	if err != nil {
		return nil, invalidRequest("generate: %v", err)
	}
	img, mime, err := decodeImage(p.ReferenceImage)
	if err != nil {
		return nil, invalidRequest("generate: reference image: %v", err)
	}
	if p.Person == nil {
		p.Person = &studio.PersonProfile{}
	}
	pose := poseOrDefault(p.PhotoType)

	prompt := studio.BuildGenerationPrompt(p.Person, p.Design, pose)
	resp, err := h.engine.GenerateImage(ctx, img, mime, prompt)
	if errors.Is(err, studio.ErrNoImageProduced) {
		return nil, fmt.Errorf("%w: %w", studio.ErrGenerationFailed, err)
	}
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"text":      resp.Text,
		"image":     encodeDataURL(resp.ImageMIME, resp.ImageData),
		"photoType": pose,
	}, nil
}

func (h *Handler) handleReview(ctx context.Context, body *requestBody) (any, error) {
	p, err := decodeData[reviewPayload](body.Data)
	if err != nil {
		return nil, invalidRequest("review: %v", err)
	}
	orig, origMIME, err := decodeImage(p.OriginalImage)
	if err != nil {
		return nil, invalidRequest("review: original image: %v", err)
	}
	generated, genMIME, err := decodeImage(p.GeneratedImage)
	if err != nil {
		return nil, invalidRequest("review: generated image: %v", err)
	}

	return h.engine.ReviewImage(ctx, orig, origMIME, generated, genMIME, p.Person, poseOrDefault(p.PhotoType))
}

func (h *Handler) handleProcessAll(ctx context.Context, body *requestBody) (any, error) {
	p, err := decodeData[processAllPayload](body.Data)
	if err != nil {
		return nil, invalidRequest("processAll: %v", err)
	}
	img, mime, err := decodeImage(p.OriginalImage)
	if err != nil {
		return nil, invalidRequest("processAll: original image: %v", err)
	}

	poses := p.PhotoTypes
	if len(poses) == 0 {
		poses = studio.DefaultPoses
	}

	person, results, err := h.engine.ProcessAll(ctx, img, mime, poses, h.cfg.MaxConcurrentPoses)
	if err != nil {
		return nil, err
	}

	// Completion order is nondeterministic; re-sort into request order for
	// a stable response. Failed poses are dropped from the photo list but
	// logged, matching partial-result delivery.
	byPose := make(map[string]photoJSON, len(poses))
	for res := range results {
		if res.Err != nil {
			log.Warn().Err(res.Err).Str("pose", res.Pose).Msg("Pose dropped from result set")
			continue
		}
		byPose[res.Pose] = photoToJSON(res.Photo)
	}
	photos := make([]photoJSON, 0, len(byPose))
	for _, pose := range poses {
		if photo, ok := byPose[pose]; ok {
			photos = append(photos, photo)
		}
	}

	return map[string]any{"person": person, "photos": photos}, nil
}

func (h *Handler) handleProcessPose(ctx context.Context, body *requestBody) (any, error) {
	p, err := decodeData[processPosePayload](body.Data)
	if err != nil {
		return nil, invalidRequest("processPose: %v", err)
	}
	if p.OriginalImage == "" || p.PhotoType == "" {
		return nil, invalidRequest("processPose: originalImage and photoType are required")
	}
	img, mime, err := decodeImage(p.OriginalImage)
	if err != nil {
		return nil, invalidRequest("processPose: original image: %v", err)
	}

	person := p.Person
	if person == nil {
		person, err = h.engine.AnalyzePerson(ctx, img, mime)
		if err != nil {
			return nil, err
		}
	}

	photo, err := h.engine.ProcessPose(ctx, img, mime, p.PhotoType, person)
	if err != nil {
		return nil, err
	}
	return photoToJSON(photo), nil
}

func poseOrDefault(pose string) string {
	if pose == "" {
		return studio.PoseFrontalHeadshot
	}
	return pose
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, kind ErrorKind, message string) {
	writeJSON(w, kind.HTTPStatus(), map[string]any{
		"error":   string(kind),
		"message": message,
	})
}
