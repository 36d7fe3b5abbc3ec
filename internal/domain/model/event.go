// Package model contains domain models passed between layers.
package model

import "time"

// EventKind classifies an activity event pulled from the feed.
type EventKind string

const (
	EventPush              EventKind = "push"
	EventPullRequestOpened EventKind = "pull_request_opened"
	EventPullRequestMerged EventKind = "pull_request_merged"
	EventReviewSubmitted   EventKind = "review_submitted"
	EventUnknown           EventKind = "unknown"
)

// Event is a single unit of remote coding activity.
type Event struct {
	ID        string    // feed-assigned id, unique per user
	Kind      EventKind // classified kind; EventUnknown scores nothing
	CreatedAt time.Time
	Repo      string
}
