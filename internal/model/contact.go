// internal/model/contact.go
package model

import (
	"strings"
	"time"
)

// ContactStatus is the lifecycle stage of a contact
type ContactStatus string

const (
	ContactNew       ContactStatus = "new"
	ContactContacted ContactStatus = "contacted"
	ContactReplied   ContactStatus = "replied"
	ContactConverted ContactStatus = "converted"
	ContactRejected  ContactStatus = "rejected"
)

// Valid reports whether s is a known contact status
func (s ContactStatus) Valid() bool {
	switch s {
	case ContactNew, ContactContacted, ContactReplied, ContactConverted, ContactRejected:
		return true
	}
	return false
}

type Contact struct {
	ID            string        `json:"id"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	Email         string        `json:"email"`
	Company       string        `json:"company"`
	Position      string        `json:"position"`
	Phone         string        `json:"phone,omitempty"`
	Status        ContactStatus `json:"status"`
	LastContacted *time.Time    `json:"last_contacted,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// FullName joins first and last name the way templates render {{fullName}}
func (c *Contact) FullName() string {
	return c.FirstName + " " + c.LastName
}

// ContactInput is a contact record as produced by a contact source or an
// API request, before it gets an identity.
type ContactInput struct {
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Email     string        `json:"email"`
	Company   string        `json:"company"`
	Position  string        `json:"position"`
	Phone     string        `json:"phone,omitempty"`
	Status    ContactStatus `json:"status,omitempty"`
	Notes     string        `json:"notes,omitempty"`
	Tags      []string      `json:"tags,omitempty"`
}

// NormalizeEmail is the comparison key for email uniqueness
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ImportResult summarises a contact import
type ImportResult struct {
	Success bool     `json:"success"`
	Count   int      `json:"count"`
	Errors  []string `json:"errors,omitempty"`
}
