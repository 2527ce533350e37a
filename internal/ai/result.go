package ai

// Result is the uniform outcome of an AI command or execution handler.
type Result struct {
	Success bool
	Message string
	Data    any

	// Operation is set when the command resolved to a tool call; empty
	// for free-text replies.
	Operation Operation

	// NeedsClarification: more than one product matched; Options carries
	// the candidates and the mutation is deferred until the user picks.
	NeedsClarification bool
	Options            []ClarifyOption

	// NeedsConfirmation: a bulk mutation is staged in session state and
	// requires an explicit confirm action before anything changes.
	NeedsConfirmation bool

	// FallbackToMenu signals the caller to degrade to the manual UI
	// (AI unavailable or misconfigured).
	FallbackToMenu bool

	// Retry marks transient provider failures worth retrying by the user.
	Retry bool

	// Silent means the message was conversational filler; the caller
	// should not reply at all.
	Silent bool
}

func failure(message string) Result {
	return Result{Success: false, Message: message}
}
