package task

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// Filter narrows Service.GetAll. Nil fields are unconstrained.
type Filter struct {
	Status   *Status   `json:"status,omitempty"`
	Priority *Priority `json:"priority,omitempty"`
	Search   *string   `json:"search,omitempty"`
}

func (f Filter) Validate() error {
	if f.Status != nil && !f.Status.Valid() {
		return validationError("status", "status must be one of todo, in-progress, done")
	}
	if f.Priority != nil && !f.Priority.Valid() {
		return validationError("priority", "priority must be one of low, medium, high")
	}
	return nil
}

// searchTerm returns the trimmed search text, or "" when no search applies
func (f Filter) searchTerm() string {
	if f.Search == nil {
		return ""
	}
	return strings.TrimSpace(*f.Search)
}

type CreateInput struct {
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (in CreateInput) Validate() error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if in.Status != nil && !in.Status.Valid() {
		return validationError("status", "status must be one of todo, in-progress, done")
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return validationError("priority", "priority must be one of low, medium, high")
	}
	return nil
}

// NullableTime distinguishes an absent JSON field from an explicit null.
// The zero value means "not supplied".
type NullableTime struct {
	Set  bool
	Time *time.Time
}

// NullTime is a supplied null
func NullTime() NullableTime {
	return NullableTime{Set: true}
}

// SomeTime is a supplied value
func SomeTime(t time.Time) NullableTime {
	return NullableTime{Set: true, Time: &t}
}

func (n *NullableTime) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Time = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	n.Time = &t
	return nil
}

// UpdateInput is a partial update. Nil fields keep their stored value.
type UpdateInput struct {
	ID          string       `json:"-"`
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Status      *Status      `json:"status,omitempty"`
	Priority    *Priority    `json:"priority,omitempty"`
	DueDate     NullableTime `json:"due_date"`
}

func (in UpdateInput) Validate() error {
	if err := validateID(in.ID); err != nil {
		return err
	}
	if in.Title != nil {
		if err := validateTitle(*in.Title); err != nil {
			return err
		}
	}
	if in.Status != nil && !in.Status.Valid() {
		return validationError("status", "status must be one of todo, in-progress, done")
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return validationError("priority", "priority must be one of low, medium, high")
	}
	return nil
}

// ByIDInput identifies a single task
type ByIDInput struct {
	ID string `json:"id"`
}

func (in ByIDInput) Validate() error {
	return validateID(in.ID)
}

func validateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return validationError("id", "id is required")
	}
	return nil
}

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return validationError("title", "title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return validationError("title", "title is too long")
	}
	return nil
}
