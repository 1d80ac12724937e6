package conversation

import "context"

// Messenger delivers prompts and confirmations back to the sender.
// Delivery is fire-and-forget: failures are logged by implementations
// and never retried by the engine.
type Messenger interface {
	SendText(ctx context.Context, to, body string) error
	SendChoices(ctx context.Context, to, body string, choices []string) error
}
