// Package repository holds the data-access layer. The sentinel errors
// below are the contract between repositories/services and the HTTP
// boundary: handlers translate them to 400/403/404/409 and treat
// anything else as a 500.
package repository

import "errors"

// ErrNotFound is returned when the referenced record or comment does
// not exist (already deleted, bad id).
var ErrNotFound = errors.New("resource not found")

// ErrForbidden is returned when the caller has a valid identity but is
// not allowed to act on the resource: not the requester on delete, not
// the purchaser on revert, not the author on comment delete.
var ErrForbidden = errors.New("forbidden")

// ErrConflict signals a lost race on a state transition, e.g. two
// purchasers confirming the same pending request. Callers should
// refresh their view rather than retry blindly.
var ErrConflict = errors.New("conflict")

// ErrInvalidInput indicates malformed or missing required input.
var ErrInvalidInput = errors.New("invalid input")

// ErrVersionMismatch is the raw optimistic-lock failure: the row moved
// between read and write. The transition engine retries on it a bounded
// number of times before surfacing ErrConflict. It never leaves the
// service layer.
var ErrVersionMismatch = errors.New("version mismatch")
