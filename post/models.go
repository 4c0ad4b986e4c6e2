// Package post defines the public-channel posting queue.
package post

import (
	"time"

	"github.com/velora/vault/id"
	"github.com/velora/vault/types"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPosted  Status = "posted"
	StatusFailed  Status = "failed"
)

// ScheduledPost queues one image for public posting at a point in time.
// Every post passes the content safety guard before publishing; a guard
// failure marks the post failed and records why.
type ScheduledPost struct {
	types.Entity
	ID       id.ScheduledPostID `json:"id"`
	ImageID  id.ImageID         `json:"image_id"`
	Caption  string             `json:"caption,omitempty"`
	PostAt   time.Time          `json:"post_at"`
	Status   Status             `json:"status"`
	PostedAt *time.Time         `json:"posted_at,omitempty"`
	FailReason string           `json:"fail_reason,omitempty"`
}

// Due reports whether the post should be published at t.
func (p *ScheduledPost) Due(t time.Time) bool {
	return p.Status == StatusPending && !t.Before(p.PostAt)
}
