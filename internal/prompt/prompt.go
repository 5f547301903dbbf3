// Package prompt turns user-selected design options into model prompts.
package prompt

import (
	"fmt"
	"strings"
)

// DesignOptions are the user-selected parameters interpolated into a prompt.
type DesignOptions struct {
	Style        string `json:"style"`
	Architecture string `json:"architecture"`
	Lighting     string `json:"lighting"`
	ColorScheme  string `json:"colorScheme"`
	RoomType     string `json:"roomType"`
}

const (
	defaultStyle        = "modern"
	defaultArchitecture = "contemporary"
	defaultLighting     = "natural"
	defaultColorScheme  = "neutral"
	defaultRoomType     = "living room"
)

// NegativePrompt is sent alongside every design prompt.
const NegativePrompt = "lowres, watermark, banner, logo, text, deformed, blurry, out of focus, " +
	"surreal, ugly, distorted proportions, bad architecture, extra windows, cropped"

// EnhancePrompt describes the upscaling pass; the enhance model ignores free text
// but the value is echoed back to callers for display.
const EnhancePrompt = "enhance image quality, sharpen details, upscale"

// WithDefaults fills every empty option with its default value.
func (o DesignOptions) WithDefaults() DesignOptions {
	o.Style = orDefault(o.Style, defaultStyle)
	o.Architecture = orDefault(o.Architecture, defaultArchitecture)
	o.Lighting = orDefault(o.Lighting, defaultLighting)
	o.ColorScheme = orDefault(o.ColorScheme, defaultColorScheme)
	o.RoomType = orDefault(o.RoomType, defaultRoomType)
	return o
}

// CreatePrompt renders the primary model prompt. It is a pure function of opts.
func CreatePrompt(opts DesignOptions) string {
	o := opts.WithDefaults()
	return fmt.Sprintf(
		"A photorealistic %s style %s interior with %s architectural details, "+
			"%s lighting and a %s color scheme. Professional interior design photography, "+
			"high resolution, detailed furniture and decor, realistic textures and materials, "+
			"balanced composition, 8k",
		o.Style, o.RoomType, o.Architecture, o.Lighting, o.ColorScheme,
	)
}

// SimplePrompt renders the shorter prompt used by the backup model.
func SimplePrompt(opts DesignOptions) string {
	o := opts.WithDefaults()
	return fmt.Sprintf("%s %s interior, %s lighting, %s colors", o.Style, o.RoomType, o.Lighting, o.ColorScheme)
}

func orDefault(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return strings.ToLower(v)
}
