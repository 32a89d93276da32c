package studio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fpang/ai-portrait-studio/internal/gemini"
)

func TestAnalyzePerson_ParsesProfile(t *testing.T) {
	inv := &stageInvoker{
		respond: map[string]func(int, string) (*gemini.Response, error){
			"analyze": func(int, string) (*gemini.Response, error) {
				return &gemini.Response{Text: "```json\n" + testProfileJSON + "\n```"}, nil
			},
		},
	}
	e := newTestEngine(inv)

	profile, err := e.AnalyzePerson(context.Background(), testRefImage, "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Race != "East Asian" {
		t.Errorf("expected race East Asian, got %q", profile.Race)
	}
	if len(profile.UniqueFeatures) != 2 {
		t.Errorf("expected 2 unique features, got %v", profile.UniqueFeatures)
	}
}

func TestAnalyzePerson_InvalidJSONIsError(t *testing.T) {
	inv := &stageInvoker{
		respond: map[string]func(int, string) (*gemini.Response, error){
			"analyze": func(int, string) (*gemini.Response, error) {
				return &gemini.Response{Text: "I could not analyze this image."}, nil
			},
		},
	}
	e := newTestEngine(inv)

	_, err := e.AnalyzePerson(context.Background(), testRefImage, "image/jpeg")
	if !errors.Is(err, ErrInvalidModelJSON) {
		t.Errorf("expected ErrInvalidModelJSON, got %v", err)
	}
}

func TestDesignPose_InvalidJSONIsError(t *testing.T) {
	inv := &stageInvoker{
		respond: map[string]func(int, string) (*gemini.Response, error){
			"design": func(int, string) (*gemini.Response, error) {
				return &gemini.Response{Text: "no json here"}, nil
			},
		},
	}
	e := newTestEngine(inv)

	person := &PersonProfile{Race: "Caucasian", Gender: "male", Age: "40-50"}
	_, err := e.DesignPose(context.Background(), person, PosePortrait)
	if !errors.Is(err, ErrInvalidModelJSON) {
		t.Errorf("expected ErrInvalidModelJSON, got %v", err)
	}
}

func TestDesignPose_IncludesPoseGuide(t *testing.T) {
	inv := &stageInvoker{}
	e := newTestEngine(inv)

	person := &PersonProfile{Race: "Caucasian", Gender: "male", Age: "40-50"}
	design, err := e.DesignPose(context.Background(), person, PoseSideHeadshot)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if design.Styling.Clothing == "" {
		t.Error("expected clothing in parsed design")
	}

	prompts := inv.promptTexts("design")
	if len(prompts) != 1 {
		t.Fatalf("expected one design call, got %d", len(prompts))
	}
	if want := "70-90 degrees"; !strings.Contains(prompts[0], want) {
		t.Errorf("expected side-angle guide %q in design prompt", want)
	}
}

func TestReviewInput_UnparseableFailsOpen(t *testing.T) {
	inv := &stageInvoker{
		respond: map[string]func(int, string) (*gemini.Response, error){
			"inputReview": func(int, string) (*gemini.Response, error) {
				return &gemini.Response{Text: "The photo looks fine to me."}, nil
			},
		},
	}
	e := newTestEngine(inv)

	review, err := e.ReviewInput(context.Background(), testRefImage, "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !review.IsApproved() {
		t.Error("expected fail-open approval for unparseable review")
	}
	if review.OverallScore != 75 {
		t.Errorf("expected default score 75, got %d", review.OverallScore)
	}
}

func TestReviewInput_RejectsLowScore(t *testing.T) {
	inv := &stageInvoker{
		respond: map[string]func(int, string) (*gemini.Response, error){
			"inputReview": func(int, string) (*gemini.Response, error) {
				return &gemini.Response{Text: reviewJSON(40, false, "face is obscured")}, nil
			},
		},
	}
	e := newTestEngine(inv)

	review, err := e.ReviewInput(context.Background(), testRefImage, "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if review.IsApproved() {
		t.Error("expected rejection for score 40 with approved=false")
	}
}
