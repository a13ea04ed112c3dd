package themes

import (
	"fmt"
	"strings"

	"github.com/loganlanou/aigifts/internal/apperr"
)

type Theme string

const (
	Spookify Theme = "spookify"
	Jollyfy  Theme = "jollyfy"
	Gifts    Theme = "gifts"
)

type Info struct {
	ID            Theme  `json:"id"`
	Name          string `json:"name"`
	Tagline       string `json:"tagline"`
	DefaultPrompt string `json:"-"`
	SystemPrompt  string `json:"-"`
}

var registry = map[Theme]Info{
	Spookify: {
		ID:      Spookify,
		Name:    "Spookify",
		Tagline: "Turn your photo into a Halloween masterpiece",
		DefaultPrompt: "Transform this photo into a playful Halloween scene: moody orange and purple lighting, " +
			"carved pumpkins, drifting fog and friendly ghosts. Keep every person and pet recognizable, " +
			"same pose and composition. Painterly, high detail, no text.",
		SystemPrompt: "You are the Spookify art director. Help the customer plan a Halloween makeover of their photo. " +
			"Ask at most two short questions about costumes, mood and setting, then write the final image prompt.",
	},
	Jollyfy: {
		ID:      Jollyfy,
		Name:    "Jollyfy",
		Tagline: "Make any photo feel like Christmas morning",
		DefaultPrompt: "Transform this photo into a cozy Christmas scene: warm fairy lights, snow outside the window, " +
			"festive knitwear and a decorated tree. Keep every person and pet recognizable, same pose and composition. " +
			"Storybook illustration style, no text.",
		SystemPrompt: "You are the Jollyfy art director. Help the customer plan a festive Christmas makeover of their photo. " +
			"Ask at most two short questions about decorations, outfits and setting, then write the final image prompt.",
	},
	Gifts: {
		ID:      Gifts,
		Name:    "AI Gifts",
		Tagline: "A one-of-a-kind artwork made from your photo",
		DefaultPrompt: "Reimagine this photo as a vibrant illustrated artwork suitable for framing. " +
			"Keep every person and pet recognizable, same pose and composition. No text.",
		SystemPrompt: "You are an art director for personalised printed gifts. Help the customer choose a style for " +
			"their photo. Ask at most two short questions about style and occasion, then write the final image prompt.",
	},
}

// Parse accepts a theme id, defaulting to Gifts for empty input.
func Parse(s string) (Theme, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Gifts, nil
	}
	t := Theme(s)
	if _, ok := registry[t]; !ok {
		return "", fmt.Errorf("unknown theme %q: %w", s, apperr.ErrValidation)
	}
	return t, nil
}

func (t Theme) Info() Info {
	if info, ok := registry[t]; ok {
		return info
	}
	return registry[Gifts]
}

func All() []Info {
	return []Info{registry[Spookify], registry[Jollyfy], registry[Gifts]}
}
