package core

import "errors"

// Error kinds produced by the core.  Callers match them with errors.Is; the
// wrapped message carries the detail.
var (
	// ErrMalformedInput reports a record or request whose shape is unusable.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnknownTemplate reports an instruction template name that is not configured.
	ErrUnknownTemplate = errors.New("unknown instruction template")
	// ErrEmptyReply reports an assistant reply with no content to extract.
	ErrEmptyReply = errors.New("empty response")
	// ErrInvalidReplyFormat reports a reply that is not the expected JSON document.
	ErrInvalidReplyFormat = errors.New("invalid reply format")
	// ErrAssistantCall reports a failed call to the hosted assistant service.
	ErrAssistantCall = errors.New("assistant call failed")
	// ErrRunFailed reports a run that reached a terminal status other than completed.
	ErrRunFailed = errors.New("assistant run failed")
	// ErrRecordsDisabled reports a remote analysis while no records API is configured.
	ErrRecordsDisabled = errors.New("records api is not configured")
)
