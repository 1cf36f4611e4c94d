package models

import "time"

const CommentStruct = "Comment"

type Comment struct {
	ID        string `json:"id"`
	PostID    string `json:"post_id"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	CreatedAt uint64 `json:"created_at"`
}

func (c *Comment) CreatedTime() time.Time {
	return msToTime(c.CreatedAt)
}

func DecodeComment(raw []byte) (*Comment, error) {
	r, err := openRecord(raw, CommentStruct)
	if err != nil {
		return nil, err
	}

	return &Comment{
		ID:        r.id,
		PostID:    r.str("post_id"),
		Author:    r.str("author"),
		Content:   r.str("content"),
		CreatedAt: r.uint("created_at"),
	}, nil
}
