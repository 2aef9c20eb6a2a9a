package models

import (
	"time"

	"github.com/google/uuid"
)

// Template is an uploaded document template.
type Template struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Placeholder is one raw token found in a template, in document order.
type Placeholder struct {
	Position int    `json:"position"`
	Raw      string `json:"raw"`
}
