package services

import (
	"fmt"
	"strings"

	"github.com/brandforge/api/internal/domain"
)

const defaultAspectRatio = "1:1"

// personTokens are the topic words that imply a person is already part of the
// requested scene, so the reference subject must not be inserted twice.
var personTokens = map[string]struct{}{
	"people": {},
	"person": {},
	"man":    {},
	"woman":  {},
	"guy":    {},
	"girl":   {},
}

// resolveAspectRatio picks the output ratio: an explicit non-default ratio
// wins, otherwise the target platform keyword decides, otherwise square.
func resolveAspectRatio(explicit, platform string) string {
	if ratio := strings.TrimSpace(explicit); ratio != "" && ratio != defaultAspectRatio {
		return ratio
	}

	p := strings.ToLower(strings.TrimSpace(platform))
	switch {
	case strings.Contains(p, "youtube"), strings.Contains(p, "twitter"):
		return "16:9"
	case strings.Contains(p, "story"), strings.Contains(p, "tiktok"),
		strings.Contains(p, "reel"), strings.Contains(p, "short"):
		return "9:16"
	default:
		return defaultAspectRatio
	}
}

// mentionsPerson scans the topic for person-referring tokens on word
// boundaries, so "woman" does not match on its "man" suffix.
func mentionsPerson(topic string) bool {
	token := strings.Builder{}
	flush := func() bool {
		if token.Len() == 0 {
			return false
		}
		_, found := personTokens[token.String()]
		token.Reset()
		return found
	}

	for _, r := range strings.ToLower(topic) {
		if r >= 'a' && r <= 'z' {
			token.WriteRune(r)
			continue
		}
		if flush() {
			return true
		}
	}
	return flush()
}

// buildSmartImagePrompt renders the smart-image prompt per the person heuristic.
func buildSmartImagePrompt(in PromptInput, aspectRatio string, hasReference bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a polished social media image about %q with a %s aspect ratio.", in.Topic, aspectRatio)
	if brand := brandSection(in.Brand); brand != "" {
		b.WriteString(" ")
		b.WriteString(brand)
	}

	if !hasReference {
		b.WriteString(" Do not include any text overlays.")
		return b.String()
	}

	if mentionsPerson(in.Topic) {
		// The topic already places a person in the scene; adding placement
		// instructions would duplicate the subject.
		b.WriteString(" Use the attached reference image as the visual subject of the scene.")
		return b.String()
	}

	b.WriteString(" Place the exact person from the attached reference image in the scene,")
	b.WriteString(" positioned on the left 30-40% of the frame, preserving their facial identity precisely.")
	b.WriteString(" Produce one single cohesive photograph:")
	b.WriteString(" no collages, no multiple variations, no text overlays, and no cartoon styling.")
	return b.String()
}

// buildStandaloneImagePrompt renders the fixed-shape prompt for type=image.
func buildStandaloneImagePrompt(brand domain.BrandContext, topic string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a high-quality promotional image about %q.", topic)
	if section := brandSection(brand); section != "" {
		b.WriteString(" ")
		b.WriteString(section)
	}
	b.WriteString(" Do not include any text overlays.")
	return b.String()
}
