// Package domain contains core domain types for the PulsePlan service.
package domain

import (
	"time"
)

// User is the account record. Numeric ids are assigned by the outer
// application; this service treats them as authoritative identity and
// provisions the row on first sight.
type User struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"created_at"`
}
