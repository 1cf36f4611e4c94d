package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContent(t *testing.T) {
	c := ParseContent(`{"text":"hi","image":"ipfs://x"}`)
	assert.Equal(t, "hi", c.Text)
	require.NotNil(t, c.Image)
	assert.Equal(t, "ipfs://x", *c.Image)

	c = ParseContent("plain hello")
	assert.Equal(t, "plain hello", c.Text)
	assert.Nil(t, c.Image)
}

func TestParseContent_Fallbacks(t *testing.T) {
	for _, s := range []string{
		`{"text": broken}`,
		`{}`,
		`{"other":"field"}`,
		`{"text": 5}`,
		`  {not json at all}  `,
		`["text"]`,
		``,
	} {
		c := ParseContent(s)
		assert.Equal(t, s, c.Text, s)
		assert.Nil(t, c.Image, s)
	}
}

func TestParseContent_ImageOnly(t *testing.T) {
	c := ParseContent(`  {"image":"ipfs://bafy"}  `)
	assert.Equal(t, "", c.Text)
	require.NotNil(t, c.Image)
	assert.Equal(t, "ipfs://bafy", *c.Image)
}

func TestParseContentStrict_Error(t *testing.T) {
	_, err := ParseContentStrict("plain")
	var pe *ContentParseError
	assert.ErrorAs(t, err, &pe)
}

func TestPostContent_Encode(t *testing.T) {
	s, err := PostContent{Text: "just text"}.Encode()
	require.NoError(t, err)
	assert.Equal(t, "just text", s)

	img := "ipfs://bafy"
	s, err = PostContent{Text: "pic", Image: &img}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"pic","image":"ipfs://bafy"}`, s)

	assert.Equal(t, PostContent{Text: "pic", Image: &img}, ParseContent(s))
}
