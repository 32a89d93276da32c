// Package studio implements the portrait generation pipeline: person
// analysis, per-pose art direction, prompt building and review, image
// generation, and the quality-gated retry state machine that ties them
// together.
package studio

import "errors"

// Pose identifiers for the portrait variants the studio can produce.
const (
	PoseFrontalHeadshot = "frontal headshot"
	PoseSideHeadshot    = "side-angle headshot"
	PosePortrait        = "portrait"
	PoseHalfBody        = "half-body"
	PoseFullBody        = "full-body"
)

// DefaultPoses is the full variant set produced when the caller does not
// request specific poses.
var DefaultPoses = []string{
	PoseFrontalHeadshot,
	PoseSideHeadshot,
	PosePortrait,
	PoseHalfBody,
	PoseFullBody,
}

// ApprovalScoreThreshold is the fallback quality gate applied when a review
// omits the explicit approved flag.
const ApprovalScoreThreshold = 70

// Pipeline errors surfaced to the API boundary.
var (
	// ErrInvalidModelJSON marks a mandatory-JSON stage whose model output
	// could not be parsed.
	ErrInvalidModelJSON = errors.New("model returned invalid JSON")

	// ErrNoImageProduced marks a generation call that returned no inline
	// image part.
	ErrNoImageProduced = errors.New("model returned no image")

	// ErrGenerationFailed marks a pipeline that exhausted every iteration
	// without producing a single image.
	ErrGenerationFailed = errors.New("image generation failed")
)

// PersonProfile holds the identity-preserving attributes extracted from the
// reference photograph. It is computed at most once per source image per
// request and shared read-only across all pose pipelines.
type PersonProfile struct {
	Race               string   `json:"race"`
	SkinTone           string   `json:"skinTone"`
	Gender             string   `json:"gender"`
	Age                string   `json:"age"`
	FaceShape          string   `json:"faceShape"`
	SkinConcerns       []string `json:"skinConcerns,omitempty"`
	UniqueFeatures     []string `json:"uniqueFeatures,omitempty"`
	PreservationPoints []string `json:"preservationPoints,omitempty"`
	Lighting           string   `json:"lighting,omitempty"`
	Expression         string   `json:"expression,omitempty"`
}

// MakeupPlan is the makeup portion of a pose design.
type MakeupPlan struct {
	Base  string `json:"base"`
	Eyes  string `json:"eyes"`
	Lips  string `json:"lips"`
	Blush string `json:"blush"`
}

// StylingPlan is the wardrobe portion of a pose design.
type StylingPlan struct {
	Clothing    string `json:"clothing"`
	Colors      string `json:"colors"`
	Accessories string `json:"accessories"`
}

// PosturePlan is the pose-direction portion of a pose design.
type PosturePlan struct {
	Description      string `json:"description"`
	HeadAngle        string `json:"headAngle"`
	ShoulderPosition string `json:"shoulderPosition"`
	Expression       string `json:"expression"`
}

// LightingPlan is the lighting portion of a pose design.
type LightingPlan struct {
	Type       string `json:"type"`
	Position   string `json:"position"`
	Background string `json:"background"`
}

// PoseDesign is the art-direction decision for one pose. It is consumed
// only by the prompt builder for the same pose and never reused.
type PoseDesign struct {
	Makeup   MakeupPlan   `json:"makeup"`
	Styling  StylingPlan  `json:"styling"`
	Posture  PosturePlan  `json:"posture"`
	Lighting LightingPlan `json:"lighting"`
}

// IdentityMatch is the same-person verdict inside an image review.
type IdentityMatch struct {
	Score      int    `json:"score"`
	Confidence string `json:"confidence"`
	Verdict    string `json:"verdict"`
}

// FacialFeatures is the feature-preservation breakdown inside an image review.
type FacialFeatures struct {
	PreservationScore int      `json:"preservationScore"`
	MatchingFeatures  []string `json:"matchingFeatures,omitempty"`
	Differences       []string `json:"differences,omitempty"`
}

// QualityAssessment is the per-dimension quality breakdown inside an image
// review.
type QualityAssessment struct {
	Professionalism int `json:"professionalism"`
	Beautification  int `json:"beautification"`
	Lighting        int `json:"lighting"`
	Pose            int `json:"pose"`
}

// ReviewResult is a structured judgment from a review stage. Approved is a
// pointer because the model sometimes omits the flag; IsApproved falls back
// to the score threshold in that case.
type ReviewResult struct {
	OverallScore int      `json:"overallScore"`
	Approved     *bool    `json:"approved,omitempty"`
	Summary      string   `json:"summary"`
	Suggestions  []string `json:"suggestions,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Weaknesses   []string `json:"weaknesses,omitempty"`
	Issues       []string `json:"issues,omitempty"`

	IdentityMatch     *IdentityMatch     `json:"identityMatch,omitempty"`
	FacialFeatures    *FacialFeatures    `json:"facialFeatures,omitempty"`
	QualityAssessment *QualityAssessment `json:"qualityAssessment,omitempty"`

	Iteration int `json:"iteration,omitempty"`
}

// IsApproved applies the quality gate: the explicit approved flag when
// present, otherwise the score threshold.
func (r *ReviewResult) IsApproved() bool {
	if r == nil {
		return false
	}
	if r.Approved != nil {
		return *r.Approved
	}
	return r.OverallScore >= ApprovalScoreThreshold
}

// GeneratedPhoto is the terminal artifact of one pose pipeline. It is never
// mutated after creation.
type GeneratedPhoto struct {
	ID                   string        `json:"id"`
	Pose                 string        `json:"pose"`
	ImageData            []byte        `json:"-"`
	ImageMIME            string        `json:"-"`
	Review               *ReviewResult `json:"review"`
	PromptIterations     int           `json:"promptIterations"`
	GenerationIterations int           `json:"generationIterations"`
	Approved             bool          `json:"approved"`
}

// PoseResult delivers one pose pipeline's outcome on the coordinator's
// result channel. Exactly one of Photo and Err is set.
type PoseResult struct {
	Pose  string
	Photo *GeneratedPhoto
	Err   error
}

func boolPtr(b bool) *bool { return &b }

// defaultImageReview is the fail-open verdict substituted when an image
// review comes back as unparseable JSON.
func defaultImageReview() *ReviewResult {
	return &ReviewResult{
		OverallScore: 75,
		Approved:     boolPtr(true),
		Summary:      "Review completed",
		IdentityMatch: &IdentityMatch{
			Score:      75,
			Confidence: "Medium",
			Verdict:    "Same person",
		},
	}
}

// defaultPromptReview is the fail-open verdict for unparseable prompt
// reviews.
func defaultPromptReview(iteration int) *ReviewResult {
	return &ReviewResult{
		OverallScore: 75,
		Approved:     boolPtr(true),
		Summary:      "Prompt review completed",
		Strengths:    []string{"Pose and identity requirements present"},
		Iteration:    iteration,
	}
}

// defaultInputReview is the fail-open verdict for unparseable input-photo
// reviews.
func defaultInputReview() *ReviewResult {
	return &ReviewResult{
		OverallScore: 75,
		Approved:     boolPtr(true),
		Summary:      "Input review completed",
		Issues:       []string{},
		Suggestions:  []string{},
	}
}
