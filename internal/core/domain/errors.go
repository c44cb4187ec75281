package domain

import "errors"

var (
	ErrUnauthorized = errors.New("resource does not belong to the requesting user")
	ErrInvalidDate  = errors.New("invalid date format, expected YYYY-MM-DD")
	ErrInvalidRange = errors.New("invalid date range")
)
