// SPDX-License-Identifier: GPL-3.0-or-later

//go:generate mockgen -destination=mocks/completer.go -package=mocks . Completer
package domain

import "context"

// CompletionRequest is a single stateless request to the text completion
// service. Empty optional fields are filled from the saved AI config.
type CompletionRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Endpoint     string
	APIKey       string
}

type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
