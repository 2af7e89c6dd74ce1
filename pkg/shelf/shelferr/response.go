package shelferr

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Envelope is the JSON body of a failed request.
type Envelope struct {
	Error Payload `json:"error"`
}

// Payload is the client-facing part of an Error.
type Payload struct {
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Label          string         `json:"label"`
	Status         int            `json:"status"`
	AdditionalData AdditionalData `json:"additionalData,omitempty"`
}

// ToPayload converts an Error to its client-facing form.
func (e *Error) ToPayload() Payload {
	return Payload{
		Title:          e.Title,
		Message:        e.Message,
		Label:          e.Label,
		Status:         e.Status,
		AdditionalData: e.AdditionalData,
	}
}

// Respond normalizes err, logs it and writes the error envelope.
func Respond(c *gin.Context, logger zerolog.Logger, err error, extra AdditionalData) *Error {
	reason := Make(err, extra)

	event := logger.Warn()
	if reason.Status >= 500 {
		event = logger.Error()
	}
	event.Err(reason.Cause).
		Str("label", reason.Label).
		Str("kind", string(reason.Kind)).
		Int("status", reason.Status).
		Interface("additional_data", reason.AdditionalData).
		Msg(reason.Message)

	c.AbortWithStatusJSON(reason.Status, Envelope{Error: reason.ToPayload()})
	return reason
}
