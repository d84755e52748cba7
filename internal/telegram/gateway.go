// Package telegram adapts the Telegram Bot API to the messaging contract.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/ibechinedu/Scaling-Solana-Monk/internal/messaging"
)

const pollingTimeout = 10 * time.Second

// Config wires a Gateway.
type Config struct {
	Token       string
	PollTimeout time.Duration
	Logger      *zap.Logger
}

// Command is a bot command advertised to Telegram clients.
type Command struct {
	Name        string
	Description string
}

// Gateway sends messages through a telebot client and feeds inbound updates
// to a dispatcher.
type Gateway struct {
	client *tb.Bot
	logger *zap.Logger
}

// New creates the telebot client. It calls getMe, so it fails fast on a bad token.
func New(cfg Config) (*Gateway, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = pollingTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	logger := cfg.Logger.Named("telegram")

	client, err := tb.NewBot(tb.Settings{
		Token:     cfg.Token,
		Poller:    &tb.LongPoller{Timeout: cfg.PollTimeout},
		ParseMode: tb.ModeMarkdown,
		Reporter: func(err error) {
			logger.Warn("Telegram client error", zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Gateway{client: client, logger: logger}, nil
}

// Username returns the bot's username.
func (g *Gateway) Username() string {
	if g.client.Me == nil {
		return ""
	}
	return g.client.Me.Username
}

// SetCommands publishes the command menu.
func (g *Gateway) SetCommands(commands []Command) error {
	tbCommands := make([]tb.Command, 0, len(commands))
	for _, c := range commands {
		tbCommands = append(tbCommands, tb.Command{Text: c.Name, Description: c.Description})
	}
	if err := g.client.SetCommands(tbCommands); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}
	return nil
}

// Start polls for updates and dispatches them until ctx is cancelled.
func (g *Gateway) Start(ctx context.Context, dispatcher messaging.Dispatcher) error {
	username := g.Username()

	g.client.Handle(tb.OnText, func(m *tb.Message) {
		ev, ok := messageEvent(m, username)
		if !ok {
			return
		}
		dispatcher.HandleEvent(ctx, ev)
	})

	g.client.Handle(tb.OnCallback, func(c *tb.Callback) {
		if err := g.client.Respond(c); err != nil {
			g.logger.Debug("Failed to answer callback", zap.Error(err))
		}
		ev, ok := callbackEvent(c)
		if !ok {
			return
		}
		dispatcher.HandleEvent(ctx, ev)
	})

	g.logger.Info("📡 Telegram polling started", zap.String("bot", username))
	go g.client.Start()

	<-ctx.Done()
	g.client.Stop()
	g.logger.Info("Telegram polling stopped")
	return nil
}

// Deliver sends msg to chatID. A message with a photo is sent as a photo
// with the text as caption.
func (g *Gateway) Deliver(ctx context.Context, chatID int64, msg messaging.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	opts := &tb.SendOptions{
		ParseMode:             tb.ModeMarkdown,
		DisableWebPagePreview: msg.DisablePreview,
	}
	if len(msg.Keyboard) > 0 {
		opts.ReplyMarkup = &tb.ReplyMarkup{InlineKeyboard: inlineKeyboard(msg.Keyboard)}
	}

	var what interface{} = msg.Text
	if msg.IsPhoto() {
		what = photo(msg)
	}

	if _, err := g.client.Send(&tb.Chat{ID: chatID}, what, opts); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// SetProfileText updates the bot's short description.
func (g *Gateway) SetProfileText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := g.client.Raw("setMyShortDescription", map[string]string{"short_description": text}); err != nil {
		return fmt.Errorf("setMyShortDescription: %w", err)
	}
	return nil
}

// Ping calls getMe.
func (g *Gateway) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := g.client.Raw("getMe", map[string]string{}); err != nil {
		return fmt.Errorf("getMe: %w", err)
	}
	return nil
}

func photo(msg messaging.Message) *tb.Photo {
	p := &tb.Photo{Caption: msg.Text}
	if msg.PhotoPath != "" {
		p.File = tb.FromDisk(msg.PhotoPath)
	} else {
		p.File = tb.FromURL(msg.PhotoURL)
	}
	return p
}

func inlineKeyboard(rows [][]messaging.Button) [][]tb.InlineButton {
	out := make([][]tb.InlineButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tb.InlineButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tb.InlineButton{Text: b.Text, Data: b.Data})
		}
		out = append(out, buttons)
	}
	return out
}

func messageEvent(m *tb.Message, botUsername string) (messaging.Event, bool) {
	if m == nil || m.Sender == nil || m.Text == "" {
		return messaging.Event{}, false
	}

	ev := messaging.Event{
		Kind:     messaging.EventText,
		UserID:   m.Sender.ID,
		Username: m.Sender.Username,
		Text:     m.Text,
	}
	if m.Chat != nil {
		ev.ChatID = m.Chat.ID
	}

	if name, args, ok := parseCommand(m.Text, botUsername); ok {
		ev.Kind = messaging.EventCommand
		ev.Command = name
		ev.Args = args
	}
	return ev, true
}

func callbackEvent(c *tb.Callback) (messaging.Event, bool) {
	if c == nil || c.Sender == nil {
		return messaging.Event{}, false
	}
	ev := messaging.Event{
		Kind:         messaging.EventCallback,
		UserID:       c.Sender.ID,
		Username:     c.Sender.Username,
		CallbackID:   c.ID,
		CallbackData: c.Data,
	}
	if c.Message != nil && c.Message.Chat != nil {
		ev.ChatID = c.Message.Chat.ID
	}
	return ev, true
}

// parseCommand splits "/Name@bot arg1 arg2" into "name" and its arguments.
// Commands addressed to another bot are not commands for us.
func parseCommand(text, botUsername string) (string, []string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}

	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		target := name[at+1:]
		if botUsername != "" && !strings.EqualFold(target, botUsername) {
			return "", nil, false
		}
		name = name[:at]
	}
	if name == "" {
		return "", nil, false
	}

	args := fields[1:]
	if len(args) == 0 {
		args = nil
	}
	return strings.ToLower(name), args, true
}
