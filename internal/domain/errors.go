package domain

type ErrorCode string

const (
	CodeMalformedEvent     ErrorCode = "MALFORMED_EVENT"
	CodeForbiddenEventType ErrorCode = "FORBIDDEN_EVENT_TYPE"
	CodeRoomNotFound       ErrorCode = "ROOM_NOT_FOUND"
	CodeStoreUnavailable   ErrorCode = "STORE_UNAVAILABLE"
	CodeTransportDropped   ErrorCode = "TRANSPORT_DROPPED"
)

// SyncError is a recoverable protocol error reported privately to the
// offending sender.
type SyncError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func NewSyncError(code ErrorCode, message string) *SyncError {
	return &SyncError{Code: code, Message: message}
}

func (e *SyncError) Error() string {
	return string(e.Code) + ": " + e.Message
}
