package studio

// prompts.go builds the model-facing instructions for every stage. Each
// builder is deterministic: the same typed inputs always produce the same
// instruction text.

import (
	"encoding/json"
	"fmt"
	"strings"
)

// postureGuides maps each pose to the posing instruction embedded in the
// design prompt.
var postureGuides = map[string]string{
	PoseFrontalHeadshot: "Front-facing headshot, shoulders slightly angled, direct eye contact with camera",
	PoseSideHeadshot:    "Body angled 70-90 degrees to camera, face turned 30-45 degrees toward camera (not full profile), eyes toward camera, suitable for news/company profile",
	PosePortrait:        "Medium close-up, chest up, slightly angled pose with natural head tilt",
	PoseHalfBody:        "Waist up, three-quarter view, one shoulder slightly forward, professional hand placement",
	PoseFullBody:        "Full body standing pose, confident posture, weight on one leg, professional stance",
}

// poseDescriptions maps each pose to the framing instruction embedded in
// the generation prompt.
var poseDescriptions = map[string]string{
	PoseFrontalHeadshot: "Front-facing professional headshot. Face directly toward camera. Full face visible. Shoulders at slight angle.",
	PoseSideHeadshot:    "Side-angle portrait. Body turned 70-90 degrees to camera, face turned back 30-45 degrees toward camera (not full profile). Eyes toward camera. Suitable for news/company profile use.",
	PosePortrait:        "Medium close-up portrait. Chest and up visible. Slight three-quarter angle. Natural relaxed pose.",
	PoseHalfBody:        "Half-body shot from waist up. Three-quarter body angle. Professional arm and hand positioning visible.",
	PoseFullBody:        "Full body standing pose. Complete figure visible from head to toe. Professional business stance.",
}

// identityChecks maps each pose to the verification checklist embedded in
// the comparison prompt.
var identityChecks = map[string][]string{
	PoseFrontalHeadshot: {
		"Face shape and proportions identical?",
		"Eye shape, size, and position match?",
		"Nose shape and bridge identical?",
		"Lip shape and fullness match?",
		"Facial structure (cheekbones, jawline) preserved?",
	},
	PoseSideHeadshot: {
		"Profile silhouette matches reference?",
		"Nose bridge curve identical?",
		"Chin and jawline profile match?",
		"Forehead slope identical?",
		"Overall facial proportions preserved?",
	},
	PosePortrait: {
		"Facial features clearly recognizable?",
		"Unique characteristics (glasses, etc.) preserved?",
		"Facial structure maintained from this angle?",
		"Expression natural and consistent?",
	},
	PoseHalfBody: {
		"Person clearly identifiable as same individual?",
		"Facial features match reference?",
		"Body proportions appropriate?",
		"Professional posture achieved?",
	},
	PoseFullBody: {
		"Same person clearly identifiable?",
		"Facial structure preserved?",
		"Professional full-body pose?",
		"Business attire appropriate?",
	},
}

// BuildAnalyzePrompt asks the model to extract identity-preserving
// attributes from the reference photograph as strict JSON.
func BuildAnalyzePrompt() string {
	return `Analyze this reference image carefully and extract detailed person information.

IMPORTANT: Focus on distinctive features that must be preserved in generated images.

Output strict JSON:
{
  "race": "string (e.g., East Asian, Caucasian, African)",
  "skinTone": "string with undertone details",
  "gender": "string",
  "age": "string (age range like '30-40')",
  "faceShape": "string (oval, round, square, heart, etc.)",
  "skinConcerns": ["list of visible skin characteristics"],
  "uniqueFeatures": [
    "extremely detailed list of ALL distinctive features",
    "glasses: shape, color, style",
    "hair: color, length, texture, style",
    "facial structure: cheekbones, jawline, nose shape",
    "eyes: shape, size, color",
    "eyebrows: shape, thickness",
    "lips: shape, fullness",
    "any other distinctive marks or features"
  ],
  "preservationPoints": [
    "CRITICAL: List features that MUST be identical in generated images",
    "Include specific measurements and proportions if visible"
  ],
  "lighting": "current lighting description",
  "expression": "facial expression description"
}`
}

// BuildDesignPrompt asks the model for the per-pose art direction as strict
// JSON.
func BuildDesignPrompt(person *PersonProfile, pose string) string {
	guide, ok := postureGuides[pose]
	if !ok {
		guide = "Professional business pose"
	}
	personJSON, _ := json.Marshal(person)

	return fmt.Sprintf(`Design professional photo setup for %s.

Person Details: %s

REQUIRED POSE: %s

Output strict JSON:
{
  "makeup": {
    "base": "natural professional base",
    "eyes": "enhanced but natural eye makeup",
    "lips": "neutral professional lip color",
    "blush": "subtle contouring"
  },
  "styling": {
    "clothing": "formal business attire only: dress shirt or dress shirt + suit jacket, tailored fit, no casual wear",
    "colors": "color palette that complements skin tone",
    "accessories": "minimal professional accessories"
  },
  "posture": {
    "description": "detailed pose instructions for %s",
    "headAngle": "specific head positioning",
    "shoulderPosition": "shoulder alignment",
    "expression": "professional expression"
  },
  "lighting": {
    "type": "Rembrandt or butterfly lighting",
    "position": "key light 45-degree angle",
    "background": "clean professional background"
  }
}`, pose, personJSON, guide, pose)
}

// BuildGenerationPrompt composes the working generation instruction for one
// pose attempt from the person profile and the pose design.
func BuildGenerationPrompt(person *PersonProfile, design *PoseDesign, pose string) string {
	description, ok := poseDescriptions[pose]
	if !ok {
		description = "Professional studio portrait."
	}

	features := "Preserve all facial features"
	if len(person.UniqueFeatures) > 0 {
		features = "- " + strings.Join(person.UniqueFeatures, "\n- ")
	}
	preservation := "Maintain exact facial structure"
	if len(person.PreservationPoints) > 0 {
		preservation = "- " + strings.Join(person.PreservationPoints, "\n- ")
	}

	clothing := "Formal business attire only: dress shirt or dress shirt + suit jacket, tailored fit"
	expression := "Professional confident expression"
	if design != nil {
		if design.Styling.Clothing != "" {
			clothing = design.Styling.Clothing
		}
		if design.Posture.Expression != "" {
			expression = design.Posture.Expression
		}
	}

	return fmt.Sprintf(`Generate a professional executive portrait photograph in a HIGH-END PROFESSIONAL PHOTOGRAPHY STUDIO.

PHOTO TYPE: %s
REQUIRED POSE: %s

SUBJECT DESCRIPTION (MUST MATCH REFERENCE):
- Race: %s
- Gender: %s
- Age: %s
- Face Shape: %s
- Skin Tone: %s

CRITICAL FEATURES TO PRESERVE (MAKE IDENTICAL):
%s

PRESERVATION REQUIREMENTS:
%s

STUDIO SETUP - CRITICAL REQUIREMENTS:
1. BACKGROUND: Seamless gradient backdrop (neutral gray, off-white, or subtle warm tone), smooth and clean, NO office furniture, NO windows, NO environmental elements
2. LIGHTING: Professional studio three-point lighting setup - key light at 45 degrees, fill light for shadows, hair light for separation. Soft, even, flattering illumination
3. ENVIRONMENT: Pure studio environment only. The background should be a professional photography backdrop, not an office or any real-world location
4. MAKEUP: Professional makeup artist applied - natural but polished look, suitable for corporate headshots
5. STYLING: Professional wardrobe stylist selected - premium business attire, perfectly fitted
6. PHOTOGRAPHY: Shot by professional portrait photographer with high-end medium format camera, professional lenses

DESIGN SPECIFICATIONS:
- Clothing: %s
- Lighting: Professional studio three-point lighting with softboxes
- Expression: %s
- Background: Seamless studio backdrop, gradient from light to dark, no distractions

MANDATORY RULES:
1. The generated person MUST be recognizable as the same individual from the reference
2. Facial features, proportions, and distinctive characteristics must match exactly
3. BACKGROUND MUST BE: Professional studio seamless backdrop, NOT office, NOT environment, NOT location-based
4. Lighting MUST BE: Professional studio lighting setup, NOT natural light, NOT ambient office light
5. Maintain exact face shape, eye shape, nose shape, lip shape, and all unique features
6. The pose must be exactly: %s
7. Wardrobe must be formal business attire only (dress shirt or dress shirt + suit jacket). No casual, no streetwear.
8. All poses must read as highly professional studio portraits suitable for corporate/news use
9. Quality level: Executive portrait studio photography standard

Generate a high-end, photorealistic professional studio portrait suitable for corporate executive profiles.`,
		pose, description,
		person.Race, person.Gender, person.Age, person.FaceShape, person.SkinTone,
		features, preservation, clothing, expression, description)
}

// BuildComparisonPrompt asks the model to verify the generated image
// depicts the same person as the reference, as strict JSON.
func BuildComparisonPrompt(person *PersonProfile, pose string) string {
	checks, ok := identityChecks[pose]
	if !ok {
		checks = identityChecks[PoseFrontalHeadshot]
	}
	var checklist strings.Builder
	for i, check := range checks {
		fmt.Fprintf(&checklist, "%d. %s\n", i+1, check)
	}
	personJSON, _ := json.MarshalIndent(person, "", "  ")

	return fmt.Sprintf(`Compare the REFERENCE image with the GENERATED image for %s.

Task: Verify that the generated image depicts the SAME PERSON as the reference.

Original Person Analysis:
%s

IDENTITY VERIFICATION CHECKLIST:
%s
QUALITY CRITERIA:
1. Facial Recognition: Can you confirm this is the same person?
2. Feature Preservation: Are distinctive features maintained?
3. Beautification Level: Is the enhancement appropriate (not overdone)?
4. Professional Quality: Does it meet business photo standards?
5. Pose Accuracy: Is the pose correct for %s?

Output strict JSON:
{
  "identityMatch": {
    "score": "number 0-100",
    "confidence": "High/Medium/Low",
    "verdict": "Same person/Different person/Uncertain"
  },
  "facialFeatures": {
    "preservationScore": "number 0-100",
    "matchingFeatures": ["list of matching features"],
    "differences": ["any notable differences"]
  },
  "qualityAssessment": {
    "professionalism": "number 0-100",
    "beautification": "number 0-100 (100=perfect, 0=overdone)",
    "lighting": "number 0-100",
    "pose": "number 0-100"
  },
  "overallScore": "number 0-100",
  "approved": "boolean",
  "summary": "detailed assessment",
  "suggestions": ["suggestions for improvement"]
}`, pose, personJSON, checklist.String(), pose)
}

// BuildInputReviewPrompt asks the model whether the uploaded reference
// photo is suitable for portrait generation.
func BuildInputReviewPrompt() string {
	return `Review this input photo for suitability for professional portrait generation.

Evaluation Criteria:
1. Face clearly visible and centered
2. Adequate lighting (no extreme shadows or overexposure)
3. Sufficient resolution and sharpness
4. Minimal occlusion (no masks, hands, or heavy obstructions)
5. Neutral expression preferred

Output strict JSON:
{
  "overallScore": "number 0-100",
  "approved": "boolean (true if score >= 70)",
  "summary": "brief assessment",
  "issues": ["list of issues if any"],
  "suggestions": ["how to improve the input photo"]
}`
}

// BuildPromptReviewText asks the model to judge a generation prompt before
// any image is produced.
func BuildPromptReviewText(promptText, pose string, iteration int) string {
	return fmt.Sprintf(`Review this prompt for generating a professional %s photo.

Target Pose: %s

Final Target Use Cases (MANDATORY):
- Personal resume
- Personal homepage
- News publication
- Company publicity board

Prompt to Review:
%s

Evaluation Criteria:
1. Does the prompt clearly specify the pose requirements for %s?
2. Does it preserve the person's unique features from the reference image?
3. Is the styling appropriate for formal business photography (dress shirt or dress shirt + suit jacket only)?
4. Is the lighting and background specification clear and studio-only?
5. Does the prompt explicitly target suitability for resume/homepage/news/company publicity use?
6. Are all poses framed as high-end professional studio portraits with professional styling/makeup/photography?
7. Are there any missing or unclear elements?

Strict Approval Rules:
- If the prompt does NOT explicitly target the above use cases, set approved=false.
- If formal attire or studio-only requirements are missing/ambiguous, set approved=false.

Output strict JSON:
{
  "overallScore": "number 0-100",
  "approved": "boolean (true if score >= 70)",
  "summary": "brief assessment",
  "strengths": ["what's good about this prompt"],
  "weaknesses": ["what needs improvement"],
  "suggestions": ["specific suggestions for improvement"],
  "iteration": %d
}`, pose, pose, promptText, pose, iteration)
}

// RefinePromptText appends a rejecting review's suggestions to the working
// prompt, or a generic refinement directive when the review carries none.
// Refinement only ever appends; the existing instruction text stays intact.
func RefinePromptText(promptText string, review *ReviewResult) string {
	if review == nil || len(review.Suggestions) == 0 {
		return promptText + "\n\nRefinement: Emphasize pose accuracy, identity preservation, studio lighting, and clean backdrop."
	}

	var sb strings.Builder
	sb.WriteString(promptText)
	sb.WriteString("\n\nRefinements:\n")
	for _, s := range review.Suggestions {
		sb.WriteString("- " + s + "\n")
	}
	sb.WriteString("- Re-emphasize identity preservation and studio-only background.")
	return sb.String()
}
