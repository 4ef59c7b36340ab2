package item

import (
	"errors"
	"strings"
)

// Item is a single row of the items table.
// INVARIANT: ID is assigned by the store on creation and never changes.
type Item struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Input carries the scalar fields accepted by create and replace.
type Input struct {
	Title       string
	Description string
}

// ErrNotFound is returned when no item has the requested identifier.
var ErrNotFound = errors.New("item not found")

// ErrEmptyTitle is returned by Validate when the title is blank.
var ErrEmptyTitle = errors.New("item title cannot be empty")

// Validate checks the payload rules.
// PRE: none
// POST: returns nil if valid, error describing the first violation otherwise
func (in Input) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// WithID builds the persisted row for the given identifier.
func (in Input) WithID(id int64) Item {
	return Item{ID: id, Title: in.Title, Description: in.Description}
}

// Samples returns the rows inserted by the initializer on an empty table.
func Samples() []Input {
	return []Input{
		{Title: "Wire up the dev proxy", Description: "Forward page requests to the Vite server"},
		{Title: "Seed the database", Description: "Insert sample rows on first start"},
		{Title: "List items", Description: "Offset and limit over insertion order"},
		{Title: "Edit an item", Description: "Replace the title and description"},
		{Title: "Delete an item", Description: "Remove the row by id"},
		{Title: "Check the store", Description: "Report **connected** or the failure message"},
	}
}
