package models

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// PostContent is the displayable body of a post. Image is nil for text-only
// posts.
type PostContent struct {
	Text  string  `json:"text"`
	Image *string `json:"image,omitempty"`
}

// ContentParseError means the content is not a structured payload and
// should be shown as plain text.
type ContentParseError struct {
	Reason string
}

func (e *ContentParseError) Error() string {
	return "content is not a structured payload: " + e.Reason
}

// ParseContentStrict decodes a structured payload of the form
// {"text": "...", "image": "..."}. At least one of text or image must be a
// non-empty string.
func ParseContentStrict(s string) (PostContent, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
		return PostContent{}, &ContentParseError{Reason: "not an object"}
	}
	if !gjson.Valid(trimmed) {
		return PostContent{}, &ContentParseError{Reason: "invalid json"}
	}

	parsed := gjson.Parse(trimmed)
	text := parsed.Get("text")
	image := parsed.Get("image")

	var c PostContent
	if text.Type == gjson.String {
		c.Text = text.Str
	}
	if image.Type == gjson.String && image.Str != "" {
		img := image.Str
		c.Image = &img
	}

	if c.Text == "" && c.Image == nil {
		return PostContent{}, &ContentParseError{Reason: "no text or image"}
	}
	return c, nil
}

// ParseContent never fails: anything that is not a structured payload is
// returned whole as plain text.
func ParseContent(s string) PostContent {
	c, err := ParseContentStrict(s)
	if err != nil {
		return PostContent{Text: s}
	}
	return c
}

// Encode renders the content for create_post. Text-only content is written
// as plain text so other clients can read it without decoding.
func (c PostContent) Encode() (string, error) {
	if c.Image == nil || *c.Image == "" {
		return c.Text, nil
	}

	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
