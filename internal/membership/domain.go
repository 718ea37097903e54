// Package membership holds member records. The circulation core treats
// members as read-only: events reference them, but nothing here is mutated
// by issue or return.
package membership

import "errors"

var (
	ErrNotFound   = errors.New("member not found")
	ErrDuplicate  = errors.New("member id already exists")
	ErrValidation = errors.New("validation failed")
)

// Member is a library member.
type Member struct {
	ID         string `json:"member_id" db:"id"`
	Name       string `json:"name" db:"name"`
	Role       string `json:"role" db:"role"`
	Department string `json:"department" db:"department"`
	Batch      string `json:"batch" db:"batch"`
}
