// Package shelferr defines the error value returned to clients and the boundary that
// classifies every failure into it.
package shelferr

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies a failure. The HTTP status follows from the kind.
type Kind string

const (
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindDependency   Kind = "dependency"
	KindInternal     Kind = "internal"
)

// Status returns the HTTP status for the kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// AdditionalData carries diagnostic context. It is logged and returned to the client.
type AdditionalData map[string]any

// Error is the classified failure returned across package boundaries.
type Error struct {
	Kind           Kind
	Title          string
	Message        string
	Label          string
	Status         int
	AdditionalData AdditionalData
	Cause          error
}

// Options configures a new Error. Zero fields get kind defaults.
type Options struct {
	Kind           Kind
	Title          string
	Message        string
	Label          string
	Status         int
	AdditionalData AdditionalData
	Cause          error
}

// New builds an Error from opts.
func New(opts Options) *Error {
	kind := opts.Kind
	if kind == "" {
		kind = KindInternal
	}
	status := opts.Status
	if status == 0 {
		status = kind.Status()
	}
	title := opts.Title
	if title == "" {
		title = defaultTitle(kind)
	}
	message := opts.Message
	if message == "" {
		message = defaultMessage
	}
	label := opts.Label
	if label == "" {
		label = LabelUnknown
	}
	return &Error{
		Kind:           kind,
		Title:          title,
		Message:        message,
		Label:          label,
		Status:         status,
		AdditionalData: opts.AdditionalData,
		Cause:          opts.Cause,
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Label, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Label, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// With returns a copy of e with extra additional data merged in.
// Keys already present on e are kept.
func (e *Error) With(extra AdditionalData) *Error {
	cp := *e
	cp.AdditionalData = make(AdditionalData, len(e.AdditionalData)+len(extra))
	for k, v := range extra {
		cp.AdditionalData[k] = v
	}
	for k, v := range e.AdditionalData {
		cp.AdditionalData[k] = v
	}
	return &cp
}

// WithLabel returns a copy of e attributed to the subsystem label.
func (e *Error) WithLabel(label string) *Error {
	cp := *e
	cp.Label = label
	return &cp
}

const defaultMessage = "Something went wrong. Please try again. If the issue persists, please contact support."

const (
	LabelUnknown        = "Unknown"
	LabelAdminDashboard = "Admin dashboard"
	LabelAuth           = "Auth"
	LabelQR             = "QR"
	LabelAssets         = "Assets"
	LabelTeam           = "Team"
	LabelBooking        = "Booking"
	LabelSSO            = "SSO"
	LabelRequest        = "Request validation"
)

func defaultTitle(k Kind) string {
	switch k {
	case KindUnauthorized:
		return "Unauthorized"
	case KindForbidden:
		return "Forbidden"
	case KindValidation:
		return "Invalid request"
	case KindNotFound:
		return "Not found"
	default:
		return "Oops, something went wrong"
	}
}

// Forbidden reports a failed permission check.
func Forbidden(label, message string, data AdditionalData) *Error {
	return New(Options{Kind: KindForbidden, Label: label, Message: message, AdditionalData: data})
}

// Unauthorized reports a request without an acting user.
func Unauthorized(label string) *Error {
	return New(Options{Kind: KindUnauthorized, Label: label, Message: "Authentication required"})
}

// Validation reports malformed or missing input.
func Validation(label, message string, data AdditionalData) *Error {
	return New(Options{Kind: KindValidation, Label: label, Message: message, AdditionalData: data})
}

// NotFound reports a missing or inaccessible record.
func NotFound(label, title, message string, cause error, data AdditionalData) *Error {
	return New(Options{Kind: KindNotFound, Label: label, Title: title, Message: message, Cause: cause, AdditionalData: data})
}

// Dependency reports a failed store or upstream call.
func Dependency(label, message string, cause error, data AdditionalData) *Error {
	return New(Options{Kind: KindDependency, Label: label, Message: message, Cause: cause, AdditionalData: data})
}

// Make classifies any error into an *Error, merging extra into its additional data.
// Errors that are already classified keep their kind and message. gorm.ErrRecordNotFound
// becomes NotFound; everything else becomes an internal error with the generic message.
func Make(err error, extra AdditionalData) *Error {
	var se *Error
	switch {
	case err == nil:
		se = New(Options{})
	case errors.As(err, &se):
	case errors.Is(err, gorm.ErrRecordNotFound):
		se = New(Options{Kind: KindNotFound, Message: "The requested record was not found.", Cause: err})
	default:
		se = New(Options{Kind: KindInternal, Cause: err})
	}
	if len(extra) == 0 {
		return se
	}
	return se.With(extra)
}

// IsKind reports whether err is classified as k.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}
