package models

import (
	"time"
)

// PostKind is the media type of a post.
type PostKind string

const (
	KindImage    PostKind = "image"
	KindVideo    PostKind = "video"
	KindCarousel PostKind = "carousel"
)

// Post is a single candidate item fetched for a monitored account.
// ID is unique only within the account's namespace; (AccountID, ID) is the
// identity used for dedup.
type Post struct {
	ID        string    `json:"id" validate:"required"`
	AccountID string    `json:"username" validate:"required"`
	Kind      PostKind  `json:"type"`
	MediaRef  string    `json:"media_url"`
	Caption   string    `json:"caption"`
	Timestamp time.Time `json:"timestamp"`
	Permalink string    `json:"permalink"`
}

// AccountSnapshot is the result of one fetch for one account: the account's
// display attributes plus its recent posts in source-returned order.
type AccountSnapshot struct {
	AccountID   string `json:"username"`
	DisplayName string `json:"full_name"`
	AvatarRef   string `json:"profile_picture"`
	Posts       []Post `json:"posts"`
}

// FeedEntry is a Post enriched with the account's display attributes at the
// time it was surfaced. Immutable once created.
type FeedEntry struct {
	PostID      string    `json:"id"`
	AccountID   string    `json:"username"`
	DisplayName string    `json:"full_name"`
	AvatarRef   string    `json:"profile_picture"`
	Kind        PostKind  `json:"type"`
	MediaRef    string    `json:"media_url"`
	Caption     string    `json:"caption"`
	Timestamp   time.Time `json:"timestamp"`
	Permalink   string    `json:"permalink"`
	SeenAt      time.Time `json:"seen_at"`
}

// NewFeedEntry builds the immutable feed entry for a novel post.
func NewFeedEntry(post Post, snap *AccountSnapshot, seenAt time.Time) FeedEntry {
	ts := post.Timestamp
	if ts.IsZero() {
		ts = seenAt
	}
	kind := post.Kind
	if kind == "" {
		kind = KindImage
	}
	return FeedEntry{
		PostID:      post.ID,
		AccountID:   snap.AccountID,
		DisplayName: snap.DisplayName,
		AvatarRef:   snap.AvatarRef,
		Kind:        kind,
		MediaRef:    post.MediaRef,
		Caption:     post.Caption,
		Timestamp:   ts,
		Permalink:   post.Permalink,
		SeenAt:      seenAt,
	}
}

// CycleSummary reports the outcome of one monitoring cycle.
type CycleSummary struct {
	StartedAt         time.Time     `json:"started_at"`
	Duration          time.Duration `json:"duration_ns"`
	AccountsAttempted int           `json:"accounts_attempted"`
	AccountsFailed    int           `json:"accounts_failed"`
	NewPosts          int           `json:"new_posts"`
}
