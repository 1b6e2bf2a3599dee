package media

import "fmt"

// ErrorKind classifies a lifecycle failure.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNetwork    ErrorKind = "network"
	KindServer     ErrorKind = "server"
	KindProtocol   ErrorKind = "protocol"
)

// Reason narrows a validation failure.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonTooLarge  Reason = "too_large"
	ReasonWrongType Reason = "wrong_type"
	ReasonNoFile    Reason = "no_file"
	ReasonAborted   Reason = "aborted"
)

// Generic user-facing messages, used whenever the server supplied none or cannot be trusted.
const (
	MsgWrongType     = "please select a video file"
	MsgNoFile        = "please select a file to upload"
	MsgUploadFailed  = "upload failed, please try again"
	MsgUploadAborted = "upload aborted, please try again"
	MsgNetwork       = "network error, check your connection and try again"
	MsgBadResponse   = "server error, please try again"
	MsgStatusFailed  = "status check failed, please try again"
	MsgConversion    = "conversion failed, please try another file"
	MsgUnknownStatus = "unknown status, please try again"
)

// Error is the tagged error surfaced through the observer contract.
type Error struct {
	Kind    ErrorKind
	Reason  Reason
	Message string
	Err     error
}

// NewError builds an Error of kind with a user-facing message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error that keeps cause available to errors.Is / errors.As.
func Wrap(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind and reason so callers can compare against templates.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Reason == ReasonNone || e.Reason == t.Reason)
}

// Detail includes the kind and cause, for logs.
func (e *Error) Detail() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ServerError prefers the server-supplied message and falls back to fallback.
func ServerError(serverMessage, fallback string) *Error {
	if serverMessage == "" {
		serverMessage = fallback
	}
	return NewError(KindServer, serverMessage)
}

// ValidationError builds a rejection for reason.
func ValidationError(reason Reason, message string) *Error {
	return &Error{Kind: KindValidation, Reason: reason, Message: message}
}
