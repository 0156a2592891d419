package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageContentDecodesPlainString(t *testing.T) {
	var content MessageContent
	require.NoError(t, json.Unmarshal([]byte(`"why is the sky blue?"`), &content))

	assert.False(t, content.IsMixed())
	assert.Equal(t, "why is the sky blue?", content.PlainText())
}

func TestMessageContentDecodesMixedParts(t *testing.T) {
	raw := `[{"type":"text","text":"look at this"},{"type":"image_url","image_url":{"url":"https://x/y.png"}}]`

	var content MessageContent
	require.NoError(t, json.Unmarshal([]byte(raw), &content))

	require.True(t, content.IsMixed())
	require.Len(t, content.Parts, 2)
	assert.Equal(t, PartTypeText, content.Parts[0].Type)
	require.NotNil(t, content.Parts[1].ImageURL)
	assert.Equal(t, "https://x/y.png", content.Parts[1].ImageURL.URL)
	assert.Equal(t, "look at this", content.PlainText())
}

func TestMessageContentKeepsRawForUnknownParts(t *testing.T) {
	raw := `[{"type":"sticker","pack":"dinosaurs"},"just a string"]`

	var content MessageContent
	require.NoError(t, json.Unmarshal([]byte(raw), &content))

	require.Len(t, content.Parts, 2)
	assert.Equal(t, "sticker", content.Parts[0].Type)
	assert.JSONEq(t, `{"type":"sticker","pack":"dinosaurs"}`, string(content.Parts[0].Raw))
	assert.Empty(t, content.Parts[1].Type)
	assert.Equal(t, `"just a string"`, string(content.Parts[1].Raw))
}

func TestMessageContentRoundTripsShape(t *testing.T) {
	text := NewTextContent("hello")
	data, err := json.Marshal(text)
	require.NoError(t, err)
	assert.Equal(t, `"hello"`, string(data))

	mixed := NewMixedContent([]ContentPart{{Type: PartTypeText, Text: "hi"}})
	data, err = json.Marshal(mixed)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"text","text":"hi"}]`, string(data))
}

func TestPlainTextJoinsTextParts(t *testing.T) {
	content := NewMixedContent([]ContentPart{
		{Type: PartTypeText, Text: "first"},
		{Type: PartTypeImageURL, ImageURL: &ImageRef{URL: "https://x/y.png"}},
		{Type: PartTypeText, Text: "second"},
	})

	assert.Equal(t, "first\nsecond", content.PlainText())
}
