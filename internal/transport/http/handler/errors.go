package handler

const (
	errInternalServer     = "Internal server error"
	errInvalidInput       = "Invalid input"
	errDuplicateUser      = "User with this email or username already exists"
	errInvalidCredentials = "Invalid email or password"
	errUserNotFound       = "User not found"
	errTokenInvalid       = "Invalid reset token"
	errPasswordMismatch   = "Passwords do not match"
	errMailDelivery       = "Failed to send password reset email"
)
