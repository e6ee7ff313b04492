package errors

const (
	HttpInternalError        = "internal_error"
	HttpInvalidJsonError     = "invalid_json"
	HttpValidationError      = "validation_failed"
	HttpDuplicateEventError  = "duplicate_event"
	HttpPayloadTooLargeError = "payload_too_large"
	HttpInvalidQueryError    = "invalid_query"
	HttpRuleNotFoundError    = "rule_not_found"
	HttpTooManyEventsError   = "too_many_events"
)

// ErrorResponse is the error body returned by every API handler.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
