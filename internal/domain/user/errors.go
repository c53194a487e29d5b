package user

import "errors"

// Store errors shared by every repo implementation. Distinct sentinels,
// not message strings, so handlers can map them with errors.Is.
var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)
