package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrNoConnection     = fmt.Errorf("no connection")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")

	// Session errors
	ErrNoActiveSession       = fmt.Errorf("no active playback session")
	ErrFailedToCreateSession = fmt.Errorf("failed to create playback session")

	// API and transport errors
	ErrAPIRequest = fmt.Errorf("API request failed")
	ErrDecoding   = fmt.Errorf("failed to decode response")
	ErrNotFound   = fmt.Errorf("record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
