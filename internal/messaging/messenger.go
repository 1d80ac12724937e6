package messaging

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/novamed-health/booking-platform/internal/messaging/whatsapp"
	"github.com/novamed-health/booking-platform/pkg/logging"
)

// Sender is the WhatsApp client surface the messenger needs. Satisfied
// by *whatsapp.Client.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
	SendButtons(ctx context.Context, to, body string, buttons []whatsapp.Button) error
	SendList(ctx context.Context, to, body, buttonLabel string, rows []whatsapp.Row) error
}

// Messenger renders conversation output onto WhatsApp message types:
// up to three choices become reply buttons, up to ten become a list,
// anything larger falls back to a numbered text message. Choice IDs
// are 1-based positions.
type Messenger struct {
	sender Sender
	logger *logging.Logger
}

func NewMessenger(sender Sender, logger *logging.Logger) *Messenger {
	if logger == nil {
		logger = logging.Default()
	}
	return &Messenger{sender: sender, logger: logger}
}

func (m *Messenger) SendText(ctx context.Context, to, body string) error {
	return m.sender.SendText(ctx, to, body)
}

func (m *Messenger) SendChoices(ctx context.Context, to, body string, choices []string) error {
	switch {
	case len(choices) == 0:
		return m.sender.SendText(ctx, to, body)

	case len(choices) <= 3:
		buttons := make([]whatsapp.Button, len(choices))
		for i, c := range choices {
			buttons[i] = whatsapp.Button{ID: strconv.Itoa(i + 1), Title: c}
		}
		return m.sender.SendButtons(ctx, to, body, buttons)

	case len(choices) <= 10:
		rows := make([]whatsapp.Row, len(choices))
		for i, c := range choices {
			rows[i] = whatsapp.Row{ID: strconv.Itoa(i + 1), Title: c}
		}
		return m.sender.SendList(ctx, to, body, "Options", rows)

	default:
		var b strings.Builder
		b.WriteString(body)
		for i, c := range choices {
			fmt.Fprintf(&b, "\n%d. %s", i+1, c)
		}
		b.WriteString("\nReply with a number.")
		return m.sender.SendText(ctx, to, b.String())
	}
}
