package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email and password are required")
	ErrEmailRequired         = errors.New("Email is required")
	ErrInvalidCredentials    = errors.New("Invalid email or password")
	ErrNotAuthenticated      = errors.New("Not authenticated")
	ErrSessionExpired        = errors.New("Session expired")
	ErrEmailNotFound         = errors.New("Email not found")
	ErrTooManyRequests       = errors.New("Too many requests, please try again later")
	ErrServerError           = errors.New("Server error, please try again later")
	ErrTokenExpired          = errors.New("The Commenergy API issued an already expired token")
)
