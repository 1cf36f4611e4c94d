package ledgerfeed

import "github.com/haileyok/ledgerfeed/ledger"

// Entry points of the social_media module.
const (
	EntryCreateProfile = "create_profile"
	EntryUpdateProfile = "update_profile"
	EntryCreatePost    = "create_post"
	EntryLikePost      = "like_post"
	EntryUnlikePost    = "unlike_post"
	EntryCreateComment = "create_comment"
	EntryFollowUser    = "follow_user"
	EntrySharePost     = "share_post"
)

func newCall(cfg Config, fn string, args ...ledger.Arg) *ledger.MoveCall {
	return &ledger.MoveCall{
		Package:   cfg.PackageID,
		Module:    cfg.Module,
		Function:  fn,
		Arguments: args,
	}
}

func clock(cfg Config) ledger.Arg {
	return ledger.Object(cfg.ClockObjectID)
}

func NewCreateProfileCall(cfg Config, username, bio string) *ledger.MoveCall {
	return newCall(cfg, EntryCreateProfile, ledger.PureString(username), ledger.PureString(bio), clock(cfg))
}

func NewUpdateProfileCall(cfg Config, profileID, username, bio string) *ledger.MoveCall {
	return newCall(cfg, EntryUpdateProfile, ledger.Object(profileID), ledger.PureString(username), ledger.PureString(bio))
}

func NewCreatePostCall(cfg Config, profileID, content string) *ledger.MoveCall {
	return newCall(cfg, EntryCreatePost, ledger.Object(profileID), ledger.PureString(content), clock(cfg))
}

func NewLikePostCall(cfg Config, postID string) *ledger.MoveCall {
	return newCall(cfg, EntryLikePost, ledger.Object(postID))
}

func NewUnlikePostCall(cfg Config, postID string) *ledger.MoveCall {
	return newCall(cfg, EntryUnlikePost, ledger.Object(postID))
}

func NewCreateCommentCall(cfg Config, postID, content string) *ledger.MoveCall {
	return newCall(cfg, EntryCreateComment, ledger.Object(postID), ledger.PureString(content), clock(cfg))
}

func NewFollowUserCall(cfg Config, profileID, target string) *ledger.MoveCall {
	return newCall(cfg, EntryFollowUser, ledger.Object(profileID), ledger.PureAddress(target), clock(cfg))
}

func NewSharePostCall(cfg Config, postID, recipient string) *ledger.MoveCall {
	return newCall(cfg, EntrySharePost, ledger.Object(postID), ledger.PureAddress(recipient))
}
