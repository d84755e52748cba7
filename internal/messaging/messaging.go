// Package messaging defines the boundary between the chat transport and the bot core.
package messaging

import "context"

// EventKind distinguishes the three inbound interaction types.
type EventKind int

const (
	EventCommand EventKind = iota
	EventText
	EventCallback
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Event is one inbound user interaction, already normalized by the gateway.
type Event struct {
	Kind     EventKind
	UserID   int64
	ChatID   int64
	Username string

	// Command is lower-cased, without the leading slash or @bot suffix.
	Command string
	Args    []string

	Text string

	CallbackID   string
	CallbackData string
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Message is an outbound Markdown message with optional keyboard or photo.
// When PhotoURL or PhotoPath is set the message is sent as a photo and Text
// becomes its caption.
type Message struct {
	Text           string
	Keyboard       [][]Button
	PhotoURL       string
	PhotoPath      string
	DisablePreview bool
}

// IsPhoto reports whether the message carries a photo.
func (m Message) IsPhoto() bool {
	return m.PhotoURL != "" || m.PhotoPath != ""
}

// Gateway delivers messages to chats and manages the bot profile.
type Gateway interface {
	Deliver(ctx context.Context, chatID int64, msg Message) error
	SetProfileText(ctx context.Context, text string) error
	Ping(ctx context.Context) error
}

// Dispatcher consumes inbound events.
type Dispatcher interface {
	HandleEvent(ctx context.Context, ev Event)
}

// Text builds a plain Markdown message.
func Text(text string) Message {
	return Message{Text: text}
}
