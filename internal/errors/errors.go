// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ValidationError reports a rejected input. Nothing was persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError
func NewValidation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AuthRequiredError is returned when the mail provider must be authenticated
// for the requested operation and is not.
type AuthRequiredError struct {
	Provider  string
	Operation string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("%s requires an authenticated %s mail provider", e.Operation, e.Provider)
}

// NewAuthRequired builds an AuthRequiredError
func NewAuthRequired(provider, operation string) error {
	return &AuthRequiredError{Provider: provider, Operation: operation}
}

// DispatchError wraps a per-contact send or schedule failure.
type DispatchError struct {
	ContactID string
	Email     string
	Err       error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s (%s) failed: %v", e.Email, e.ContactID, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// DuplicateError reports an email address that already exists
type DuplicateError struct {
	Email string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate email address - %s", e.Email)
}

// NewDuplicate builds a DuplicateError
func NewDuplicate(email string) error {
	return &DuplicateError{Email: email}
}

// InvalidTransitionError is returned when a status change would move an
// entity backwards or out of a terminal state.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
}

// NewInvalidTransition builds an InvalidTransitionError
func NewInvalidTransition(entity, id, from, to string) error {
	return &InvalidTransitionError{Entity: entity, ID: id, From: from, To: to}
}

// NotFoundError is returned when an entity does not exist
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Entity, e.ID)
}

// NewNotFound builds a NotFoundError
func NewNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewCampaignNotFound is shorthand for campaign lookups
func NewCampaignNotFound(id string) error {
	return NewNotFound("campaign", id)
}

// ErrTemplateLocked is returned when editing a template that sent mail already references.
var ErrTemplateLocked = errors.New("template is referenced by sent emails and can no longer be edited")

// ErrCampaignCompleted is returned when dispatching a completed campaign
var ErrCampaignCompleted = errors.New("campaign is completed")

// ErrCampaignNotDispatchable is returned when dispatching a draft or paused campaign
var ErrCampaignNotDispatchable = errors.New("campaign is not active")

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAuthRequired reports whether err is an AuthRequiredError
func IsAuthRequired(err error) bool {
	var a *AuthRequiredError
	return errors.As(err, &a)
}

// IsDuplicate reports whether err is a DuplicateError
func IsDuplicate(err error) bool {
	var d *DuplicateError
	return errors.As(err, &d)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var t *InvalidTransitionError
	return errors.As(err, &t)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}
