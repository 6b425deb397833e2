// internal/api/error_codes.go
package api

// API error codes
const (
	// generic
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorRateLimited   = "RATE_LIMIT_EXCEEDED"

	// catalog
	ErrorGalleryNotFound = "GALLERY_NOT_FOUND"
	ErrorExhibitNotFound = "EXHIBIT_NOT_FOUND"
	ErrorFocusInvalid    = "FOCUS_INVALID"

	// guide
	ErrorSessionNotFound  = "SESSION_NOT_FOUND"
	ErrorSessionClosed    = "SESSION_CLOSED"
	ErrorPersonaInvalid   = "PERSONA_INVALID"
	ErrorEmptyMessage     = "EMPTY_MESSAGE"
	ErrorGuideBusy        = "GUIDE_BUSY"
	ErrorGuideUnavailable = "GUIDE_UNAVAILABLE"
	ErrorProviderFailed   = "LLM_PROVIDER_FAILED"
	ErrorProviderTimeout  = "LLM_PROVIDER_TIMEOUT"
)
