package httputil

// Machine-readable error codes returned in ErrorResponse.Code
const (
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
	CodeCooldownActive     = "COOLDOWN_ACTIVE"

	// Authentication
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeMissingAuth          = "MISSING_AUTH"
	CodeInvalidAuthHeader    = "INVALID_AUTH_HEADER"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeTokenExpired         = "TOKEN_EXPIRED"
	CodeInvalidTokenUserID   = "INVALID_TOKEN_USER_ID"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeEmailAlreadyExists   = "EMAIL_ALREADY_EXISTS"
	CodeRefreshTokenRequired = "REFRESH_TOKEN_REQUIRED"
	CodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"
	CodeInvalidResetToken    = "INVALID_RESET_TOKEN"
	CodeUserNotFound         = "USER_NOT_FOUND"

	// Tasks
	CodeTaskNotFound = "TASK_NOT_FOUND"
)
