package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brandforge/api/internal/domain"
)

// PromptInput bundles everything the prompt templates may draw on.
type PromptInput struct {
	Brand          domain.BrandContext
	Topic          string
	Tones          []string
	Options        map[string]any
	HasImage       bool
	Schema         json.RawMessage
	FormData       map[string]any
	DynamicAnswers map[string]any
}

// imageSourceInstruction is appended to every template when a vision input is attached.
const imageSourceInstruction = "Use the attached image as the primary source material and ground the content in what it actually shows."

// CompilePrompt deterministically maps a content type and its input to a
// model-ready prompt. The boolean reports whether the prompt demands a
// structured JSON-only response.
func CompilePrompt(contentType domain.ContentType, in PromptInput) (string, bool, error) {
	var b strings.Builder
	structured := false

	switch contentType {
	case domain.ContentTypeCaption:
		fmt.Fprintf(&b, "Write an engaging social media caption about %q. Include relevant hashtags.", in.Topic)
	case domain.ContentTypePost:
		fmt.Fprintf(&b, "Write %d distinct social media post variations about %q. Separate the variations with a blank line.", numVariations(in.Options), in.Topic)
	case domain.ContentTypeTweet:
		fmt.Fprintf(&b, "Write a tweet about %q. Keep it under 280 characters.", in.Topic)
	case domain.ContentTypeVideoScript:
		fmt.Fprintf(&b, "Write a short-form video script about %q with a hook, a main section, and a call to action.", in.Topic)
		if minWords, ok := optionInt(in.Options, "minWords"); ok {
			if maxWords, okMax := optionInt(in.Options, "maxWords"); okMax {
				fmt.Fprintf(&b, " Aim for between %d and %d words.", minWords, maxWords)
			} else {
				fmt.Fprintf(&b, " Aim for at least %d words.", minWords)
			}
		} else if maxWords, ok := optionInt(in.Options, "maxWords"); ok {
			fmt.Fprintf(&b, " Stay under %d words.", maxWords)
		}
	case domain.ContentTypeIdea:
		fmt.Fprintf(&b, "Brainstorm %d content ideas about %q.", numIdeas(in.Options), in.Topic)
		if len(in.Schema) > 0 {
			structured = true
			writeStructuredInstruction(&b, string(in.Schema))
		}
	case domain.ContentTypeRoadmap:
		structured = true
		b.WriteString("Create a step-by-step content growth roadmap for this brand.")
		writeStructuredInstruction(&b, `{"roadmap": [{"phase": string, "title": string, "steps": [string]}]}`)
	case domain.ContentTypeChecklist:
		structured = true
		b.WriteString("Create an actionable weekly content checklist for this brand.")
		writeStructuredInstruction(&b, `{"checklist": [{"task": string, "detail": string}]}`)
	case domain.ContentTypePillars:
		structured = true
		b.WriteString("Define the core content pillars for this brand.")
		writeStructuredInstruction(&b, `{"pillars": [{"name": string, "description": string, "exampleTopics": [string]}]}`)
	case domain.ContentTypeGuide:
		structured = true
		b.WriteString("Using the intake form below, produce a personalised content strategy guide.")
		writeJSONSection(&b, "Intake form", in.FormData)
		writeStructuredInstruction(&b, `{"guide": {"title": string, "sections": [{"heading": string, "body": string}]}}`)
	case domain.ContentTypeGuideFinal:
		structured = true
		b.WriteString("Using the intake form and the interview answers below, produce the final personalised content strategy guide.")
		writeJSONSection(&b, "Intake form", in.FormData)
		writeJSONSection(&b, "Interview answers", in.DynamicAnswers)
		writeStructuredInstruction(&b, `{"guide": {"title": string, "sections": [{"heading": string, "body": string}]}}`)
	default:
		return "", false, &UnknownTypeError{Type: contentType}
	}

	if brand := brandSection(in.Brand); brand != "" {
		b.WriteString(" ")
		b.WriteString(brand)
	}
	b.WriteString(" ")
	b.WriteString(toneInstruction(in.Tones))
	if in.HasImage {
		b.WriteString(" ")
		b.WriteString(imageSourceInstruction)
	}

	return b.String(), structured, nil
}

// toneInstruction renders the shared tone rule. Tones beyond the cap are ignored.
func toneInstruction(tones []string) string {
	cleaned := make([]string, 0, domain.MaxTones)
	for _, tone := range tones {
		if t := strings.TrimSpace(tone); t != "" {
			cleaned = append(cleaned, t)
		}
		if len(cleaned) == domain.MaxTones {
			break
		}
	}
	if len(cleaned) == 0 {
		return "Use a professional and engaging tone."
	}
	return fmt.Sprintf("Use the following tones: %s.", strings.Join(cleaned, ", "))
}

func brandSection(brand domain.BrandContext) string {
	if brand.IsEmpty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("You are creating content for")
	if brand.Name != "" {
		fmt.Fprintf(&b, " the brand %q", brand.Name)
	} else {
		b.WriteString(" a brand")
	}
	if brand.Industry != "" {
		fmt.Fprintf(&b, " in the %s industry", brand.Industry)
	}
	b.WriteString(".")
	if brand.Tone != "" {
		fmt.Fprintf(&b, " Brand voice: %s.", brand.Tone)
	}
	if brand.Audience != "" {
		fmt.Fprintf(&b, " Target audience: %s.", brand.Audience)
	}
	return b.String()
}

func writeStructuredInstruction(b *strings.Builder, shape string) {
	fmt.Fprintf(b, " Return only a JSON object matching exactly this shape, with no prose, no markdown, and no code fences: %s", shape)
}

func writeJSONSection(b *strings.Builder, label string, data map[string]any) {
	if len(data) == 0 {
		return
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(b, " %s: %s", label, encoded)
}

func numIdeas(options map[string]any) int {
	if n, ok := optionInt(options, "numIdeas"); ok && n > 0 {
		return n
	}
	return 5
}
