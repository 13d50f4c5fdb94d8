// Package domain holds the WorkflowItem aggregate and its finite state
// machine. It computes proposed transitions only; persistence and ledger
// appends are the orchestrator's job.
package domain

import (
	"strings"
	"time"

	"servicedesk-control-plane/internal/apperr"
)

// Item is a service request governed by the workflow state machine.
// Status is mutated only by the orchestrator via a validated transition.
type Item struct {
	ID          string
	Title       string
	Description string
	Category    Category
	Priority    Priority
	Status      Status
	CreatorID   string
	AssigneeID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Version increments on every committed mutation; the store uses it for
	// optimistic concurrency.
	Version int64
}

// Fields carries optional field edits for create and update commands.
// Nil pointers mean "leave unchanged".
type Fields struct {
	Title       *string
	Description *string
	Category    *Category
	Priority    *Priority
}

// NewItem creates a draft item owned by creatorID. Empty category and
// priority default to "other" and "normal"; an empty title is rejected.
func NewItem(id, creatorID, title, description string, category Category, priority Priority, now time.Time) (*Item, error) {
	if strings.TrimSpace(title) == "" {
		return nil, &apperr.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if creatorID == "" {
		return nil, &apperr.ValidationError{Field: "creator_id", Reason: "must not be empty"}
	}
	if category == "" {
		category = CategoryOther
	}
	if !category.IsValid() {
		return nil, &apperr.ValidationError{Field: "category", Reason: "unknown category " + string(category)}
	}
	if priority == "" {
		priority = PriorityNormal
	}
	if !priority.IsValid() {
		return nil, &apperr.ValidationError{Field: "priority", Reason: "unknown priority " + string(priority)}
	}
	return &Item{
		ID:          id,
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		Status:      StatusDraft,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Clone returns an independent copy of the item.
func (i *Item) Clone() *Item {
	c := *i
	return &c
}

// ApplyEdits applies the given field edits to the item. Edits are only legal
// while the item is in draft; the caller must have already validated the
// update transition. Invalid values fail with ValidationError and leave the
// item untouched.
func (i *Item) ApplyEdits(f Fields) error {
	if f.Title != nil && strings.TrimSpace(*f.Title) == "" {
		return &apperr.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if f.Category != nil && !f.Category.IsValid() {
		return &apperr.ValidationError{Field: "category", Reason: "unknown category " + string(*f.Category)}
	}
	if f.Priority != nil && !f.Priority.IsValid() {
		return &apperr.ValidationError{Field: "priority", Reason: "unknown priority " + string(*f.Priority)}
	}
	if f.Title != nil {
		i.Title = *f.Title
	}
	if f.Description != nil {
		i.Description = *f.Description
	}
	if f.Category != nil {
		i.Category = *f.Category
	}
	if f.Priority != nil {
		i.Priority = *f.Priority
	}
	return nil
}
