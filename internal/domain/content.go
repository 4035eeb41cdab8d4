package domain

import "encoding/json"

// ContentType identifies which generation pipeline a request targets.
type ContentType string

const (
	ContentTypeCaption     ContentType = "caption"
	ContentTypePost        ContentType = "post"
	ContentTypeTweet       ContentType = "tweet"
	ContentTypeVideoScript ContentType = "videoScript"
	ContentTypeIdea        ContentType = "idea"
	ContentTypeImage       ContentType = "image"
	ContentTypeSmartImage  ContentType = "smartImage"
	ContentTypeRoadmap     ContentType = "roadmap"
	ContentTypeChecklist   ContentType = "checklist"
	ContentTypePillars     ContentType = "contentPillars"
	ContentTypeGuide       ContentType = "dynamicGuide"
	ContentTypeGuideIter   ContentType = "dynamicGuideIterative"
	ContentTypeGuideFinal  ContentType = "finalGuide"
)

// MaxTones caps the number of tone hints accepted per request.
const MaxTones = 3

// GenerationPayload is the canonical request payload after normalisation.
type GenerationPayload struct {
	Topic          string          `json:"topic,omitempty"`
	Tones          []string        `json:"tones,omitempty"`
	Options        map[string]any  `json:"options,omitempty"`
	Image          string          `json:"image,omitempty"`
	AspectRatio    string          `json:"aspectRatio,omitempty"`
	FacePosition   string          `json:"facePosition,omitempty"`
	CoreData       CoreData        `json:"coreData,omitempty"`
	History        []DialogueTurn  `json:"history,omitempty"`
	Schema         json.RawMessage `json:"schema,omitempty"`
	FormData       map[string]any  `json:"formData,omitempty"`
	DynamicAnswers map[string]any  `json:"dynamicAnswers,omitempty"`
	UseBrandData   *bool           `json:"useBrandData,omitempty"`
}

// HasImage reports whether the payload carries a vision input.
func (p GenerationPayload) HasImage() bool {
	return p.Image != ""
}

// WantsBrandData reports whether brand context should personalise the prompt.
// Callers opt out explicitly; absence means yes.
func (p GenerationPayload) WantsBrandData() bool {
	return p.UseBrandData == nil || *p.UseBrandData
}

// GenerationRequest is the canonical request after normalisation.
type GenerationRequest struct {
	Type    ContentType       `json:"type"`
	Payload GenerationPayload `json:"payload"`
}

// CoreData captures the fixed intake fields of the guide interview.
type CoreData struct {
	Niche      string `json:"niche,omitempty"`
	Goal       string `json:"goal,omitempty"`
	Tone       string `json:"tone,omitempty"`
	Commitment string `json:"commitment,omitempty"`
}

// DialogueTurn is one asked-and-answered exchange in the guide interview.
type DialogueTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QuestionType enumerates the input widgets a dialogue question may request.
type QuestionType string

const (
	QuestionTypeText   QuestionType = "text"
	QuestionTypeRadio  QuestionType = "radio"
	QuestionTypeSelect QuestionType = "select"
)

// DialogueQuestion is the next question emitted by the guide interview.
type DialogueQuestion struct {
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
}
