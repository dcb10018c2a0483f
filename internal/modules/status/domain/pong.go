package domain

import "strings"

// PongTrigger is the emoji that makes a bot answer.
const PongTrigger = "🏓"

// PongResult represents the result of evaluating a pong trigger.
type PongResult struct {
	ShouldRespond bool
	Response      string
}

// NewPongResult evaluates the content and creates a PongResult signed with
// the username of the answering bot.
func NewPongResult(content, username string) *PongResult {
	shouldRespond := strings.Contains(content, PongTrigger)

	response := ""
	if shouldRespond {
		response = "Pong " + PongTrigger + " from " + username
	}

	return &PongResult{
		ShouldRespond: shouldRespond,
		Response:      response,
	}
}
