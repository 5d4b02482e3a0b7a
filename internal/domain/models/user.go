package models

import "time"

// User represents a registered customer account.
type User struct {
	ID        int64
	Email     string
	PassHash  []byte
	FirstName string
	LastName  string
	Phone     string
	CreatedAt time.Time
}
