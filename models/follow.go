package models

const FollowStruct = "Follow"

// FollowEdge is owned by the follower. Its existence is the follow.
type FollowEdge struct {
	ID        string `json:"id"`
	Follower  string `json:"follower"`
	Following string `json:"following"`
	CreatedAt uint64 `json:"created_at"`
}

func DecodeFollowEdge(raw []byte) (*FollowEdge, error) {
	r, err := openRecord(raw, FollowStruct)
	if err != nil {
		return nil, err
	}

	return &FollowEdge{
		ID:        r.id,
		Follower:  r.str("follower"),
		Following: r.str("following"),
		CreatedAt: r.uint("created_at"),
	}, nil
}
