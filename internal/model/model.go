// Package model holds the entities the data-access core reads and writes.
//
// Values are passed and cached by copy. Anything holding a slice must be
// cloned before it crosses the actor boundary so a caller mutating its own
// copy can never change what another caller reads from the cache.
package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Page is a single piece of content addressed by its URL path.
//
// CreatedBy and ModifiedBy are weak references to AdminUser.ID. They are
// stored as given and never resolved or cascaded here.
type Page struct {
	Path       string    `json:"path" validate:"required,startswith=/"`
	CreatedAt  time.Time `json:"created_at"`
	CreatedBy  uuid.UUID `json:"created_by"`
	ModifiedAt time.Time `json:"modified_at"`
	ModifiedBy uuid.UUID `json:"modified_by"`
	Published  bool      `json:"published"`
	Metadata   []string  `json:"metadata"`
	Body       string    `json:"body"`
}

// Clone returns a deep copy of p.
func (p Page) Clone() Page {
	p.Metadata = slices.Clone(p.Metadata)
	return p
}

// AdminUser is an account allowed to manage pages.
type AdminUser struct {
	ID       uuid.UUID `json:"id" validate:"required"`
	Username string    `json:"username" validate:"required"`
	Email    string    `json:"email" validate:"omitempty,email"`
	Enabled  bool      `json:"enabled"`
}
