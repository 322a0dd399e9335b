package sitecontent

import "time"

// Event types published after a successful write.
const (
	EventContentUpdated = "content_updated"
	EventPostsUpdated   = "posts_updated"
)

// Event tells subscribers that stored data changed and cached copies are stale.
type Event struct {
	Type   string    `json:"type"`
	PostID string    `json:"postId,omitempty"`
	At     time.Time `json:"at"`
}
