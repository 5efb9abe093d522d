// Package bot bridges Telegram conversations to the echo gateway: a
// mention of a celestial body becomes a queued lookup, and due replies
// come back through the delivery handler.
package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/user/celestialecho/internal/delivery"
	"github.com/user/celestialecho/internal/gateway"
	"github.com/user/celestialecho/internal/types"
)

const maxTelegramMessage = 4096

// Adapter bridges Telegram to the gateway.
type Adapter struct {
	bot     *tgbotapi.BotAPI
	gateway *gateway.Gateway
	events  types.EventStore
}

// New creates a Telegram adapter.
func New(token string, gw *gateway.Gateway, events types.EventStore) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &Adapter{
		bot:     bot,
		gateway: gw,
		events:  events,
	}, nil
}

// Start begins long-polling for Telegram updates.
func (a *Adapter) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := a.bot.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			a.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			a.bot.StopReceivingUpdates()
			return
		}
	}
}

func (a *Adapter) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		a.handleCommand(ctx, msg)
		return
	}

	chatID := msg.Chat.ID
	target := stripMention(msg.Text, a.bot.Self.UserName)
	if target == "" {
		return
	}

	run := gateway.NewRun(buildSessionKey(chatID), int64(msg.MessageID), target, msg.Time().UTC())
	messageID := msg.MessageID
	run.OnComplete = func(response string) {
		a.sendReply(chatID, messageID, response)
	}

	if err := a.gateway.HandleInbound(run); err != nil {
		log.Printf("handle inbound error: %v", err)
		a.sendReply(chatID, messageID, "Sorry, I encountered an error processing your message.")
	}
}

func (a *Adapter) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		a.sendReply(chatID, 0, "Hello! Name a celestial body and I'll echo back "+
			"once a signal could have made the round trip.")

	case "status":
		events, err := a.events.List(ctx, 50)
		if err != nil {
			a.sendReply(chatID, 0, "Error fetching status.")
			return
		}
		key := buildSessionKey(chatID)
		var pending int
		for _, e := range events {
			if e.SessionKey == key && !e.Replied {
				pending++
			}
		}
		a.sendReply(chatID, 0, fmt.Sprintf("Echoes in flight for this chat: %d", pending))

	default:
		a.sendReply(chatID, 0, "Unknown command. Available: /start, /status")
	}
}

// DeliveryHandler returns the handler the delivery registry routes
// "telegram:" session keys to.
func (a *Adapter) DeliveryHandler() delivery.Handler {
	return func(key types.SessionKey, messageID int64, text string) error {
		chatID, err := chatIDFromKey(key)
		if err != nil {
			return err
		}
		a.sendReply(chatID, int(messageID), text)
		return nil
	}
}

func (a *Adapter) sendReply(chatID int64, replyTo int, text string) {
	for i, part := range splitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		if i == 0 && replyTo != 0 {
			msg.ReplyToMessageID = replyTo
		}
		if _, err := a.bot.Send(msg); err != nil {
			log.Printf("send message error: %v", err)
		}
	}
}

// stripMention removes a leading @botname so "@celestialecho Mars" and
// "Mars" resolve the same target.
func stripMention(text, username string) string {
	text = strings.TrimSpace(text)
	if username != "" && strings.HasPrefix(text, "@"+username) {
		text = strings.TrimSpace(text[len("@"+username):])
	}
	return text
}

// splitMessage splits text into chunks Telegram accepts, never cutting
// a multi-byte rune at a chunk boundary.
func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > maxTelegramMessage {
		end := maxTelegramMessage
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == 0 {
			end = maxTelegramMessage
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return append(parts, text)
}

func buildSessionKey(chatID int64) types.SessionKey {
	return types.NewSessionKey("telegram", strconv.FormatInt(chatID, 10))
}

func chatIDFromKey(key types.SessionKey) (int64, error) {
	rest, ok := strings.CutPrefix(string(key), "telegram:")
	if !ok {
		return 0, fmt.Errorf("not a telegram session key: %s", key)
	}
	chatID, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad chat id in session key %s: %w", key, err)
	}
	return chatID, nil
}
