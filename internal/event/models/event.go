package models

import (
	"strings"
	"time"

	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
)

// Event is a volunteer event: a time and place where people show up to help.
type Event struct {
	ID          id.EventID `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	CreatorID   id.UserID  `json:"creator_id"`
	StartsAt    time.Time  `json:"starts_at"`
	// VolunteerCount is derived from the volunteer set; stores keep it
	// consistent with the set under their own lock.
	VolunteerCount int       `json:"volunteer_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Comment is a message on an event's discussion thread.
type Comment struct {
	ID        id.CommentID `json:"id"`
	EventID   id.EventID   `json:"event_id"`
	AuthorID  id.UserID    `json:"author_id"`
	Body      string       `json:"body"`
	CreatedAt time.Time    `json:"created_at"`
}

// CommentWithAuthor is the read shape for comment threads.
type CommentWithAuthor struct {
	Comment
	AuthorName string `json:"author_name"`
}

// NewEvent validates and constructs a volunteer event.
func NewEvent(eventID id.EventID, creatorID id.UserID, title, description, location string, startsAt, now time.Time) (*Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "title is required")
	}
	if len(title) > 140 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "title must be 140 characters or less")
	}
	if startsAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "start time is required")
	}
	if creatorID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "creator is required")
	}

	return &Event{
		ID:          eventID,
		Title:       title,
		Description: description,
		Location:    strings.TrimSpace(location),
		CreatorID:   creatorID,
		StartsAt:    startsAt,
		CreatedAt:   now,
	}, nil
}

// NewComment validates and constructs a comment.
func NewComment(commentID id.CommentID, eventID id.EventID, authorID id.UserID, body string, now time.Time) (*Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "comment body is required")
	}
	if len(body) > 2000 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "comment must be 2000 characters or less")
	}
	if authorID.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "author is required")
	}

	return &Comment{
		ID:        commentID,
		EventID:   eventID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: now,
	}, nil
}
