package prompt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"interior-design-backend/internal/prompt"
)

func TestCreatePrompt_Golden(t *testing.T) {
	opts := prompt.DesignOptions{
		Style:        "Scandinavian",
		Architecture: "minimalist",
		Lighting:     "warm",
		ColorScheme:  "earth tones",
		RoomType:     "bedroom",
	}

	want := "A photorealistic scandinavian style bedroom interior with minimalist architectural details, " +
		"warm lighting and a earth tones color scheme. Professional interior design photography, " +
		"high resolution, detailed furniture and decor, realistic textures and materials, " +
		"balanced composition, 8k"

	assert.Equal(t, want, prompt.CreatePrompt(opts))
}

func TestCreatePrompt_Deterministic(t *testing.T) {
	opts := prompt.DesignOptions{Style: "industrial", RoomType: "kitchen"}
	first := prompt.CreatePrompt(opts)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, prompt.CreatePrompt(opts))
	}
}

func TestCreatePrompt_Defaults(t *testing.T) {
	p := prompt.CreatePrompt(prompt.DesignOptions{})
	assert.Contains(t, p, "modern style living room")
	assert.Contains(t, p, "contemporary architectural details")
	assert.Contains(t, p, "natural lighting")
	assert.Contains(t, p, "neutral color scheme")
}

func TestSimplePrompt(t *testing.T) {
	p := prompt.SimplePrompt(prompt.DesignOptions{Style: "Boho", RoomType: "office"})
	assert.Equal(t, "boho office interior, natural lighting, neutral colors", p)
}
