package httputil

// Machine-readable error codes returned alongside error messages. Clients
// branch on these, not on message text.
const (
	// 400
	CodeInvalidRequestBody = "invalid_request_body"
	CodeValidationError    = "validation_error"
	CodeInvalidActionToken = "invalid_action_token"
	CodeAlreadyVerified    = "already_verified"
	CodePasswordMismatch   = "password_mismatch"

	// 401
	CodeInvalidToken       = "invalid_token"
	CodeTokenExpired       = "token_expired"
	CodeMissingAuth        = "missing_auth"
	CodeInvalidAuthHeader  = "invalid_auth_header"
	CodeUserNotFound       = "user_not_found"
	CodeInvalidCredentials = "invalid_credentials"

	// 403
	CodeAccountNotVerified     = "account_not_verified"
	CodeInsufficientPermission = "insufficient_permission"
	CodeForbidden              = "forbidden"

	// 404
	CodeNotFound = "not_found"

	// 409
	CodeConflict = "conflict"

	// 429
	CodeTooManyRequests = "too_many_requests"
	CodeCooldownActive  = "cooldown_active"

	// 500
	CodeInternalError = "internal_error"
)
