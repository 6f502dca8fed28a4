// Package discord connects the dispatcher to Discord: DMs and mentions in,
// text and buttons out.
package discord

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/arbr39/kaizen/internal/bot"
)

const (
	accountPrefix = "discord:"
	maxMessageLen = 2000
	eventTimeout  = 30 * time.Second
)

// Handler processes chat events. *bot.Dispatcher implements it.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) (bot.Response, error)
}

type Bot struct {
	session *discordgo.Session
	handler Handler
	logger  *slog.Logger
}

// New creates the session and registers handlers. Call Open to connect.
func New(token string, handler Handler, logger *slog.Logger) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	b := &Bot{session: s, handler: handler, logger: logger}
	s.AddHandler(b.onMessage)
	s.AddHandler(b.onInteraction)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	return b, nil
}

func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening Discord connection: %w", err)
	}
	b.logger.Info("discord_connected", "user", b.session.State.User.Username)
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

// Notify sends a DM to a discord account. Other accounts are ignored.
func (b *Bot) Notify(_ context.Context, accountID, message string) error {
	userID, ok := UserID(accountID)
	if !ok {
		return nil
	}
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("opening DM with %s: %w", userID, err)
	}
	for _, chunk := range splitMessage(message, maxMessageLen) {
		if _, err := b.session.ChannelMessageSend(ch.ID, chunk); err != nil {
			return fmt.Errorf("sending DM to %s: %w", userID, err)
		}
	}
	return nil
}

// AccountID maps a Discord user to a ledger account.
func AccountID(userID string) string {
	return accountPrefix + userID
}

// UserID reverses AccountID.
func UserID(accountID string) (string, bool) {
	if !strings.HasPrefix(accountID, accountPrefix) {
		return "", false
	}
	return strings.TrimPrefix(accountID, accountPrefix), true
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}

	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return
	}

	content := strings.TrimSpace(stripMention(m.Content, s.State.User.ID))
	if content == "" {
		return
	}
	_ = s.ChannelTyping(m.ChannelID)

	ev := bot.ParseText(AccountID(m.Author.ID), m.Author.Username, content)
	resp := b.handle(ev)
	for _, msg := range buildMessages(resp) {
		if _, err := s.ChannelMessageSendComplex(m.ChannelID, msg); err != nil {
			b.logger.Warn("discord_send_failed", "channel", m.ChannelID, "error", err.Error())
			return
		}
	}
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}
	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	data := i.MessageComponentData()
	ev, ok := parseCustomID(data.CustomID, data.Values)
	if !ok {
		return
	}
	ev.AccountID = AccountID(user.ID)
	ev.DisplayName = user.Username

	msgs := buildMessages(b.handle(ev))
	first := msgs[0]
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    first.Content,
			Components: first.Components,
		},
	})
	if err != nil {
		b.logger.Warn("discord_interaction_failed", "error", err.Error())
		return
	}
	for _, msg := range msgs[1:] {
		if _, err := s.ChannelMessageSendComplex(i.ChannelID, msg); err != nil {
			b.logger.Warn("discord_send_failed", "channel", i.ChannelID, "error", err.Error())
			return
		}
	}
}

func (b *Bot) handle(ev bot.Event) bot.Response {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	resp, err := b.handler.Handle(ctx, ev)
	if err != nil {
		b.logger.Error("discord_event_failed", "account", ev.AccountID, "command", ev.Command, "error", err.Error())
		return bot.Response{Text: "Something went wrong. Try again?"}
	}
	return resp
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := maxLen
		if end > len(s) {
			end = len(s)
		}
		if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
			end = idx + 1
		} else if end < len(s) {
			// Never cut inside a multi-byte rune.
			for end > 1 && !utf8.RuneStart(s[end]) {
				end--
			}
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
