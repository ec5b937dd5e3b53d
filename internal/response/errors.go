package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden          ErrCode = "FORBIDDEN"
	ErrParticipantOnly    ErrCode = "PARTICIPANT_ACCESS_ONLY"
	ErrReviewerAccessOnly ErrCode = "REVIEWER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Entry gating (non-retryable without a new code/time window) ───
	ErrInvalidCode      ErrCode = "INVALID_CODE"
	ErrNotYetOpen       ErrCode = "NOT_YET_OPEN"
	ErrClosed           ErrCode = "CLOSED"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"

	// ─── Attempt/grading ───────────────────────────────────────────────
	ErrNoActiveAttempt ErrCode = "NO_ACTIVE_ATTEMPT"
	ErrNotGradable     ErrCode = "NOT_GRADABLE"
	ErrNotEssayItem    ErrCode = "NOT_ESSAY_ITEM"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
	// ErrSubmitNotConfirmed signals the submit write was not confirmed by the
	// store; the client must retry until it gets a definitive answer.
	ErrSubmitNotConfirmed ErrCode = "SUBMIT_NOT_CONFIRMED"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Username or password is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrParticipantOnly:
		return "This resource is restricted to exam participants."
	case ErrReviewerAccessOnly:
		return "This resource is restricted to reviewers."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."

	// ─── Entry gating ──────────────────────────────────────────────────
	case ErrInvalidCode:
		return "No exam matches this access code."
	case ErrNotYetOpen:
		return "This exam has not opened yet."
	case ErrClosed:
		return "This exam is closed."
	case ErrAlreadySubmitted:
		return "This attempt has already been submitted."

	// ─── Attempt/grading ───────────────────────────────────────────────
	case ErrNoActiveAttempt:
		return "No active attempt exists for this exam."
	case ErrNotGradable:
		return "This attempt is not awaiting grading."
	case ErrNotEssayItem:
		return "Only essay items can receive a reviewer score."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	case ErrSubmitNotConfirmed:
		return "The submission could not be confirmed. Please retry."
	default:
		return "An unexpected error occurred."
	}
}
