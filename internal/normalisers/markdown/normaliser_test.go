package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kacey/internal/core/domain"
	"github.com/custodia-labs/kacey/internal/core/ports/driven"
)

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func TestSupportedTypes(t *testing.T) {
	n := New()
	assert.Equal(t, []string{"text/markdown", "text/x-markdown"}, n.SupportedMIMETypes())
	assert.Equal(t, []string{"md", "markdown"}, n.SupportedExtensions())
}

func TestNormalise_NilDocument(t *testing.T) {
	result, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, result)
}

func TestNormalise(t *testing.T) {
	source := "# Onboarding Guide\n\n" +
		"Welcome to **Acme**. See the [wiki](https://wiki.acme.example/start).\n\n" +
		"- Laptop on day one\n" +
		"- Badge from `reception`\n\n" +
		"```go\n" +
		"fmt.Println(\"hi\")\n" +
		"```\n"

	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Content:  []byte(source),
		MIMEType: "text/markdown",
		Filename: "onboarding.md",
	})
	require.NoError(t, err)

	assert.Equal(t, "Onboarding Guide\n\n"+
		"Welcome to Acme. See the wiki.\n\n"+
		"Laptop on day one\n"+
		"Badge from reception\n\n"+
		"fmt.Println(\"hi\")", result.Content)
	assert.Equal(t, domain.ArtifactTypeTXT, result.Type)
	assert.Equal(t, "Onboarding Guide", result.Metadata[domain.MetaTitle])
	assert.Equal(t, domain.WordCount(result.Content), result.Metadata.WordCount())
}

func TestNormalise_NoHeading(t *testing.T) {
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Content: []byte("\xef\xbb\xbfJust a note."),
	})
	require.NoError(t, err)

	assert.Equal(t, "Just a note.", result.Content)
	assert.NotContains(t, result.Metadata, domain.MetaTitle)
}

func TestStrip(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "table",
			input:    "| Role | Owner |\n|---|---|\n| IT | Sam |",
			contains: []string{"Role", "Owner", "IT", "Sam"},
			excludes: []string{"|", "---"},
		},
		{
			name:     "image keeps alt text",
			input:    "![Org chart](chart.png)",
			contains: []string{"Org chart"},
			excludes: []string{"chart.png", "!["},
		},
		{
			name:     "quote and rule",
			input:    "> Ask Priya first\n\n***\n\n1. Then file a ticket",
			contains: []string{"Ask Priya first", "Then file a ticket"},
			excludes: []string{">", "***", "1."},
		},
		{
			name:     "identifiers keep underscores",
			input:    "Set max_retry_count in the config.",
			contains: []string{"max_retry_count"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Strip(tc.input)
			for _, want := range tc.contains {
				assert.Contains(t, got, want)
			}
			for _, bad := range tc.excludes {
				assert.NotContains(t, got, bad)
			}
		})
	}
}
