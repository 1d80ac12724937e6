package messaging

import "encoding/json"

// Inbound is one user message lifted out of a webhook delivery.
type Inbound struct {
	MessageID string
	From      string
	Kind      string // "text", "button_reply", "list_reply"
	Text      string
}

type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage  `json:"messages"`
				Statuses []json.RawMessage `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Button *struct {
		Text string `json:"text"`
	} `json:"button"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// ParseInbound extracts the first user message from a webhook body.
// Deliveries that carry only status updates (sent, delivered, read)
// return ok=false; a body that is not valid JSON returns an error.
func ParseInbound(body []byte) (Inbound, bool, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Inbound{}, false, err
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if in, ok := liftMessage(msg); ok {
					return in, true, nil
				}
			}
		}
	}
	return Inbound{}, false, nil
}

// liftMessage normalizes a raw message into the single text the
// conversation engine consumes. Interactive replies surface their
// title, the same text a user would type by hand.
func liftMessage(msg inboundMessage) (Inbound, bool) {
	in := Inbound{MessageID: msg.ID, From: msg.From}

	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return Inbound{}, false
		}
		in.Kind = "text"
		in.Text = msg.Text.Body
		return in, true

	case "button":
		if msg.Button == nil {
			return Inbound{}, false
		}
		in.Kind = "button_reply"
		in.Text = msg.Button.Text
		return in, true

	case "interactive":
		if msg.Interactive == nil {
			return Inbound{}, false
		}
		switch {
		case msg.Interactive.ButtonReply != nil:
			in.Kind = "button_reply"
			in.Text = msg.Interactive.ButtonReply.Title
			return in, true
		case msg.Interactive.ListReply != nil:
			in.Kind = "list_reply"
			in.Text = msg.Interactive.ListReply.Title
			return in, true
		}
		return Inbound{}, false
	}
	return Inbound{}, false
}
