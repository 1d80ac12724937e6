package whatsapp

const (
	maxButtons  = 3
	maxListRows = 10

	maxButtonTitle = 20
	maxRowTitle    = 24
)

// Button is one interactive reply button.
type Button struct {
	ID    string
	Title string
}

// Row is one interactive list entry.
type Row struct {
	ID    string
	Title string
}

type textBody struct {
	Body string `json:"body"`
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

func textPayload(to, body string) textMessage {
	return textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	}
}

type interactiveMessage struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Interactive      interactive `json:"interactive"`
}

type interactive struct {
	Type   string             `json:"type"`
	Body   textBody           `json:"body"`
	Action *interactiveAction `json:"action"`
}

type interactiveAction struct {
	Buttons  []replyButton `json:"buttons,omitempty"`
	Button   string        `json:"button,omitempty"`
	Sections []listSection `json:"sections,omitempty"`
}

type replyButton struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type listSection struct {
	Title string    `json:"title,omitempty"`
	Rows  []listRow `json:"rows"`
}

type listRow struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func buttonsPayload(to, body string, buttons []Button) interactiveMessage {
	replies := make([]replyButton, len(buttons))
	for i, b := range buttons {
		replies[i] = replyButton{
			Type:  "reply",
			Reply: buttonReply{ID: b.ID, Title: truncate(b.Title, maxButtonTitle)},
		}
	}
	return interactiveMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: interactive{
			Type:   "button",
			Body:   textBody{Body: body},
			Action: &interactiveAction{Buttons: replies},
		},
	}
}

func listPayload(to, body, buttonLabel string, rows []Row) interactiveMessage {
	out := make([]listRow, len(rows))
	for i, r := range rows {
		out[i] = listRow{ID: r.ID, Title: truncate(r.Title, maxRowTitle)}
	}
	return interactiveMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: interactive{
			Type:   "list",
			Body:   textBody{Body: body},
			Action: &interactiveAction{
				Button:   truncate(buttonLabel, maxButtonTitle),
				Sections: []listSection{{Rows: out}},
			},
		},
	}
}

type documentBody struct {
	Link     string `json:"link"`
	Filename string `json:"filename,omitempty"`
}

type documentMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Document         documentBody `json:"document"`
}

func documentPayload(to, link, filename string) documentMessage {
	return documentMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "document",
		Document:         documentBody{Link: link, Filename: filename},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
