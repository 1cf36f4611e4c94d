package models

import "time"

const ProfileStruct = "UserProfile"

type UserProfile struct {
	ID             string `json:"id"`
	Owner          string `json:"owner"`
	Username       string `json:"username"`
	Bio            string `json:"bio"`
	FollowerCount  uint64 `json:"follower_count"`
	FollowingCount uint64 `json:"following_count"`
	PostCount      uint64 `json:"post_count"`
	CreatedAt      uint64 `json:"created_at"`
}

func (p *UserProfile) CreatedTime() time.Time {
	return msToTime(p.CreatedAt)
}

func DecodeUserProfile(raw []byte) (*UserProfile, error) {
	r, err := openRecord(raw, ProfileStruct)
	if err != nil {
		return nil, err
	}

	return &UserProfile{
		ID:             r.id,
		Owner:          r.str("owner"),
		Username:       r.str("username"),
		Bio:            r.str("bio"),
		FollowerCount:  r.uint("follower_count"),
		FollowingCount: r.uint("following_count"),
		PostCount:      r.uint("post_count"),
		CreatedAt:      r.uint("created_at"),
	}, nil
}
