package tracker

import "errors"

// Validation and state errors reported to callers. Handlers map these to
// user-facing messages; none of them leaves partial state behind.
var (
	ErrNotAuthenticated   = errors.New("no active session")
	ErrInvalidCredentials = errors.New("wrong email/username or password")
	ErrMissingFields      = errors.New("all fields are required")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidDate        = errors.New("date must be in YYYY-MM-DD format")
	ErrUnknownCategory    = errors.New("category does not exist")
	ErrCategoryExists     = errors.New("category already exists")
	ErrCategoryInUse      = errors.New("category has expenses assigned to it")
	ErrUnknownExpense     = errors.New("expense does not exist")
	ErrUnknownIcon        = errors.New("icon is not in the available set")
	ErrPasswordMismatch   = errors.New("current password is not correct")
	ErrPasswordTooShort   = errors.New("new password must be at least 6 characters")
	ErrPasswordConfirm    = errors.New("password confirmation does not match")
	ErrInvalidImage       = errors.New("file is not a valid image")
	ErrImageTooLarge      = errors.New("image exceeds the 5MB limit")
	ErrInvalidPalette     = errors.New("palette index out of range")
)
