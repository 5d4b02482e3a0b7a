package models

import "time"

// Address is a durable address record. UserID is nil for guest checkout
// addresses, which are written once and never reused.
type Address struct {
	ID        int64
	UserID    *int64
	Title     string
	FirstName string
	LastName  string
	Phone     string
	Email     string
	Line1     string
	Line2     string
	City      string
	District  string
	PostCode  string
	Country   string
	CreatedAt time.Time
}

// Snapshot renders the address as the single-line text stored on an order.
// Orders keep copies, not references, so later edits never rewrite history.
func (a *Address) Snapshot() string {
	s := a.FirstName + " " + a.LastName + ", " + a.Line1
	if a.Line2 != "" {
		s += " " + a.Line2
	}
	s += ", " + a.District + "/" + a.City
	if a.PostCode != "" {
		s += " " + a.PostCode
	}
	s += ", " + a.Country + ", " + a.Phone
	return s
}
