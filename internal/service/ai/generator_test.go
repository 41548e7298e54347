package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestGeminiGeneratorWithoutKey(t *testing.T) {
	g, err := NewGeminiGenerator(context.Background(), Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, g.IsConfigured())
	assert.Equal(t, DefaultModel, g.config.Model)

	_, err = g.GenerateThoughtLeadershipPost(context.Background(), "topic", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNilGeneratorIsNotConfigured(t *testing.T) {
	var g *GeminiGenerator
	assert.False(t, g.IsConfigured())
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("  Cash flow in chemical plants \n", "")

	assert.Contains(t, prompt, "Style: thought leadership")
	assert.Contains(t, prompt, "Context:\nCash flow in chemical plants\n")
	assert.Contains(t, prompt, "Return only the post text.")

	assert.Contains(t, BuildPrompt("x", "case_study"), "Style: case study")
}
