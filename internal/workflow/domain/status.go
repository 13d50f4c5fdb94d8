package domain

// Status is a workflow item's lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

var validStatuses = map[Status]bool{
	StatusDraft:     true,
	StatusSubmitted: true,
	StatusInReview:  true,
	StatusApproved:  true,
	StatusRejected:  true,
	StatusCompleted: true,
}

// Terminal states have no outbound transitions; items in them persist for audit.
var terminalStatuses = map[Status]bool{
	StatusRejected:  true,
	StatusCompleted: true,
}

// IsValid returns true if s is a defined workflow status.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsTerminal returns true if no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

func (s Status) String() string {
	return string(s)
}

// Category classifies a service request.
type Category string

const (
	CategoryHardware Category = "hardware"
	CategorySoftware Category = "software"
	CategoryNetwork  Category = "network"
	CategoryOther    Category = "other"
)

var validCategories = map[Category]bool{
	CategoryHardware: true,
	CategorySoftware: true,
	CategoryNetwork:  true,
	CategoryOther:    true,
}

// IsValid returns true if c is a defined category.
func (c Category) IsValid() bool {
	return validCategories[c]
}

// Priority orders service requests for triage.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

var validPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityNormal: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// IsValid returns true if p is a defined priority.
func (p Priority) IsValid() bool {
	return validPriorities[p]
}
