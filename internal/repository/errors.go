package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrDuplicateEmail indicates a vote already exists for the contact e-mail.
var ErrDuplicateEmail = errors.New("repository: vote already registered for this e-mail")
