package models

import (
	"slices"
	"time"
)

const PostStruct = "Post"

type Post struct {
	ID           string `json:"id"`
	Author       string `json:"author"`
	Content      string `json:"content"`
	LikeCount    uint64 `json:"like_count"`
	CommentCount uint64 `json:"comment_count"`
	CreatedAt    uint64 `json:"created_at"`
	// Likes is the set of liking addresses as last observed. LikeCount is
	// maintained separately by the ledger and may differ from len(Likes).
	Likes []string `json:"likes"`
}

func (p *Post) CreatedTime() time.Time {
	return msToTime(p.CreatedAt)
}

// LikedBy reports whether addr is in the observed likes set.
func (p *Post) LikedBy(addr string) bool {
	if addr == "" {
		return false
	}
	return slices.Contains(p.Likes, addr)
}

// Body decodes the post content, falling back to plain text.
func (p *Post) Body() PostContent {
	return ParseContent(p.Content)
}

func DecodePost(raw []byte) (*Post, error) {
	r, err := openRecord(raw, PostStruct)
	if err != nil {
		return nil, err
	}

	return &Post{
		ID:           r.id,
		Author:       r.str("author"),
		Content:      r.str("content"),
		LikeCount:    r.uint("like_count"),
		CommentCount: r.uint("comment_count"),
		CreatedAt:    r.uint("created_at"),
		Likes:        r.addresses("likes"),
	}, nil
}
