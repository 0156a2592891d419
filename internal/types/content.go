package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Content part tags as they appear on the wire and in the messages table.
const (
	PartTypeText     = "text"
	PartTypeImageURL = "image_url"
)

// ImageRef points at a remotely hosted image.
type ImageRef struct {
	URL string `json:"url"`
}

// ContentPart is one item of a mixed-content message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageRef `json:"image_url,omitempty"`

	// Raw keeps the original JSON so unrecognized part shapes can be
	// stringified instead of dropped.
	Raw json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes a part while retaining its raw form. Items that are
// not objects decode to an untyped part carrying only the raw JSON, so the
// normalization boundary can stringify them instead of the decode failing.
func (p *ContentPart) UnmarshalJSON(data []byte) error {
	type alias ContentPart
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		*p = ContentPart{}
	} else {
		*p = ContentPart(a)
	}
	p.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the typed fields only.
func (p ContentPart) MarshalJSON() ([]byte, error) {
	type alias ContentPart
	return json.Marshal(alias(p))
}

// MessageContent is the content of a message: either plain text or an
// ordered list of typed parts. The two shapes share one JSON column, so the
// union is resolved at the decode boundary rather than inspected downstream.
type MessageContent struct {
	Text  string
	Parts []ContentPart
	mixed bool
}

// NewTextContent returns plain-text content.
func NewTextContent(text string) MessageContent {
	return MessageContent{Text: text}
}

// NewMixedContent returns mixed-part content.
func NewMixedContent(parts []ContentPart) MessageContent {
	return MessageContent{Parts: parts, mixed: true}
}

// IsMixed reports whether the content is a list of typed parts.
func (c MessageContent) IsMixed() bool {
	return c.mixed
}

// PlainText extracts the text portions of the content. For mixed content the
// text parts are joined with newlines; image parts contribute nothing.
func (c MessageContent) PlainText() string {
	if !c.mixed {
		return c.Text
	}
	var texts []string
	for _, part := range c.Parts {
		if part.Type == PartTypeText && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// UnmarshalJSON accepts either a JSON string or a JSON array of parts.
func (c *MessageContent) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return fmt.Errorf("unmarshal content parts: %w", err)
		}
		*c = MessageContent{Parts: parts, mixed: true}
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("unmarshal content text: %w", err)
	}
	*c = MessageContent{Text: text}
	return nil
}

// MarshalJSON writes back the shape the content was built with.
func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.mixed {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

// ContentBlockKind tags a normalized content block.
type ContentBlockKind string

const (
	BlockText        ContentBlockKind = "text"
	BlockInlineImage ContentBlockKind = "inline_image"
)

// ContentBlock is a normalized unit of message content fed to the
// generation service. Derived in memory only, never persisted.
type ContentBlock struct {
	Kind     ContentBlockKind
	Text     string
	MIMEType string
	Data     []byte
}

// TextBlock returns a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

// ImageBlock returns an inline image content block.
func ImageBlock(mimeType string, data []byte) ContentBlock {
	return ContentBlock{Kind: BlockInlineImage, MIMEType: mimeType, Data: data}
}

// DialogueTurn is one role-tagged block of content in the sequence fed to
// the generation service. Consecutive turns must alternate role.
type DialogueTurn struct {
	Role   MessageRole
	Blocks []ContentBlock
}
