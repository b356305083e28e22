package channel

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"transbot/internal/domain"
	"transbot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramName      = "telegram"
	telegramMaxMsgLen = 4096
)

const telegramHelp = `I translate messages in this chat into English automatically.

Manual translation:
/translate <to> <text>
/translate <from>:<to> <text>
Reply to a message with /translate <to> to translate it.`

// Telegram implements domain.Channel for a Telegram bot. Every chat the bot
// is in is a scope; private chats are unscoped.
type Telegram struct {
	token     string
	allowFrom []int64 // allowed user IDs (empty = allow all)

	bot    *tgbotapi.BotAPI
	bus    domain.MessageBus
	logger *slog.Logger
}

type TelegramConfig struct {
	Token     string
	AllowFrom []string // user IDs as strings
	Logger    *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Telegram{
		token:     cfg.Token,
		allowFrom: allowed,
		logger:    cfg.Logger,
	}
}

func (t *Telegram) Name() string { return telegramName }

// Start connects to Telegram and polls for updates until ctx is done.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)

	bus.OnOutbound(telegramName, t.deliver)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(update)
		}
	}
}

// Stop is a no-op. StopReceivingUpdates is called when Start's context is
// cancelled and panics if called twice.
func (t *Telegram) Stop() error { return nil }

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	m := update.Message
	if m == nil {
		m = update.ChannelPost
	}
	if m == nil || m.Chat == nil {
		return
	}

	if m.IsCommand() {
		t.handleCommand(m)
		return
	}
	if strings.TrimSpace(m.Text) == "" {
		return
	}
	if m.From != nil && !t.isAllowed(m.From.ID) {
		return
	}

	t.logger.Debug("telegram message received", "chat_id", m.Chat.ID, "message_id", m.MessageID, "text_len", len(m.Text))
	t.bus.Publish(inboundFromTelegram(m, t.bot.Self.ID))
}

func (t *Telegram) handleCommand(m *tgbotapi.Message) {
	switch m.Command() {
	case "start", "help":
		t.sendText(m.Chat.ID, m.MessageID, telegramHelp)
	case "translate":
		if m.From != nil && !t.isAllowed(m.From.ID) {
			t.sendText(m.Chat.ID, m.MessageID, "You are not allowed to use this bot.")
			return
		}
		args, err := parseTranslateArgs(m.CommandArguments())
		if err == nil && args.Text == "" && m.ReplyToMessage != nil {
			args.Text = m.ReplyToMessage.Text
		}
		if err != nil || args.Text == "" {
			t.sendText(m.Chat.ID, m.MessageID, "Usage: /translate <to> <text> or /translate <from>:<to> <text>")
			return
		}
		msg := inboundFromTelegram(m, t.bot.Self.ID)
		msg.Kind = domain.KindCommand
		msg.Content = args.Text
		msg.Command = args
		t.bus.Publish(msg)
	}
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

// deliver is the outbound handler registered on the bus.
func (t *Telegram) deliver(msg domain.OutboundMessage) {
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		t.logger.Error("invalid chat ID for telegram outbound", "chat_id", msg.ChatID, "err", err)
		return
	}
	replyTo, _ := strconv.Atoi(msg.ReplyTo)

	if msg.Presentation == nil {
		if msg.Error != "" {
			t.sendText(chatID, replyTo, msg.Error)
		}
		return
	}

	out := tgbotapi.NewMessage(chatID, renderHTML(msg.Presentation))
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyToMessageID = replyTo
	out.DisableNotification = true
	out.DisableWebPagePreview = true
	if _, err := t.bot.Send(out); err != nil {
		if !strings.Contains(err.Error(), "can't parse entities") {
			metrics.DeliveryFailures.WithLabelValues(telegramName).Inc()
			t.logger.Error("telegram send failed", "chat_id", chatID, "err", err)
			return
		}
		t.logger.Warn("telegram HTML rejected, sending plain text", "err", err)
		t.sendText(chatID, replyTo, renderPlain(msg.Presentation))
	}
}

func (t *Telegram) sendText(chatID int64, replyTo int, text string) {
	out := tgbotapi.NewMessage(chatID, truncate(text, telegramMaxMsgLen))
	out.ReplyToMessageID = replyTo
	out.DisableNotification = true
	if _, err := t.bot.Send(out); err != nil {
		metrics.DeliveryFailures.WithLabelValues(telegramName).Inc()
		t.logger.Error("telegram send failed", "chat_id", chatID, "err", err)
	}
}

// parseTranslateArgs parses "<to> <text>" or "<from>:<to> <text>". The
// text may be empty when the command replies to another message.
func parseTranslateArgs(s string) (*domain.CommandArgs, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("missing target language")
	}
	langs, text, _ := strings.Cut(s, " ")
	args := &domain.CommandArgs{Text: strings.TrimSpace(text)}

	if from, to, ok := strings.Cut(langs, ":"); ok {
		args.From = domain.LanguageCode(strings.TrimSpace(from))
		args.To = domain.LanguageCode(strings.TrimSpace(to))
	} else {
		args.To = domain.LanguageCode(langs)
	}
	if args.To == "" {
		return nil, fmt.Errorf("missing target language")
	}
	return args, nil
}

func inboundFromTelegram(m *tgbotapi.Message, selfID int64) domain.InboundMessage {
	chatID := strconv.FormatInt(m.Chat.ID, 10)
	msg := domain.InboundMessage{
		Channel:   telegramName,
		Kind:      domain.KindMessage,
		ChatID:    chatID,
		MessageID: strconv.Itoa(m.MessageID),
		Scope:     domain.ScopeRef{ID: chatID, Scoped: !m.Chat.IsPrivate()},
		Content:   m.Text,
		SourceURL: messageLink(m.Chat, m.MessageID),
		Timestamp: time.Unix(int64(m.Date), 0),
	}
	if m.From != nil {
		msg.FromSelf = m.From.ID == selfID
		msg.Author = domain.Author{
			ID:          strconv.FormatInt(m.From.ID, 10),
			DisplayName: telegramDisplayName(m.From),
		}
	} else if m.SenderChat != nil {
		msg.Author = domain.Author{ID: strconv.FormatInt(m.SenderChat.ID, 10), DisplayName: m.SenderChat.Title}
	}
	return msg
}

func telegramDisplayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}

// messageLink builds a t.me link for public chats and supergroups.
// Basic groups and private chats have no linkable messages.
func messageLink(chat *tgbotapi.Chat, messageID int) string {
	if chat.UserName != "" && !chat.IsPrivate() {
		return fmt.Sprintf("https://t.me/%s/%d", chat.UserName, messageID)
	}
	if chat.IsSuperGroup() || chat.IsChannel() {
		id := strings.TrimPrefix(strconv.FormatInt(chat.ID, 10), "-100")
		return fmt.Sprintf("https://t.me/c/%s/%d", id, messageID)
	}
	return ""
}

// renderHTML lays a presentation out as Telegram HTML: author line, body,
// italic footer.
func renderHTML(p *domain.Presentation) string {
	var b strings.Builder
	if p.AuthorName != "" {
		name := "<b>" + html.EscapeString(p.AuthorName) + "</b>"
		if p.AuthorURL != "" {
			name = `<a href="` + html.EscapeString(p.AuthorURL) + `">` + name + "</a>"
		}
		b.WriteString(name)
		b.WriteString("\n")
	}
	footer := "\n<i>" + html.EscapeString(p.Footer) + "</i>"
	budget := telegramMaxMsgLen - len([]rune(b.String())) - len([]rune(footer))
	b.WriteString(html.EscapeString(truncate(p.Body, budget)))
	b.WriteString(footer)
	return b.String()
}

func renderPlain(p *domain.Presentation) string {
	var b strings.Builder
	if p.AuthorName != "" {
		b.WriteString(p.AuthorName)
		b.WriteString("\n")
	}
	b.WriteString(p.Body)
	b.WriteString("\n")
	b.WriteString(p.Footer)
	return b.String()
}

// truncate cuts s to at most max runes, marking the cut with an ellipsis.
func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 {
		return ""
	}
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
