package channel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"transbot/internal/domain"
	"transbot/internal/metrics"

	"github.com/bwmarrin/discordgo"
)

const (
	discordName        = "discord"
	discordCommandName = "translate"

	discordMaxDescription = 4096
)

// Discord implements domain.Channel for Discord. It relays guild and DM
// messages to the bus and serves the /translate application command.
type Discord struct {
	token   string
	guildID string // register commands on this guild only; empty = global
	session *discordgo.Session
	bus     domain.MessageBus
	logger  *slog.Logger

	mu    sync.RWMutex
	appID string
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	Token   string
	GuildID string
	Logger  *slog.Logger
}

// NewDiscord creates a new Discord channel handler.
func NewDiscord(cfg DiscordConfig) *Discord {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Discord{
		token:   cfg.Token,
		guildID: cfg.GuildID,
		logger:  cfg.Logger,
	}
}

func (d *Discord) Name() string { return discordName }

// Start connects to Discord using a bot token and blocks until ctx is done.
func (d *Discord) Start(ctx context.Context, bus domain.MessageBus) error {
	d.bus = bus

	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	d.session = session

	bus.OnOutbound(discordName, d.deliver)

	session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		id := r.User.ID
		if r.Application != nil && r.Application.ID != "" {
			id = r.Application.ID
		}
		d.mu.Lock()
		d.appID = id
		d.mu.Unlock()
	})
	session.AddHandler(d.onMessage)
	session.AddHandler(d.onInteraction)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	d.logger.Info("discord bot connected", "user", session.State.User.Username)

	d.registerCommands()

	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return session.Close()
}

// Stop is a no-op; the session closes when Start's context is cancelled.
func (d *Discord) Stop() error { return nil }

func (d *Discord) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Content == "" {
		return
	}
	selfID := ""
	if s.State.User != nil {
		selfID = s.State.User.ID
	}

	var color *domain.Color
	scope := domain.ScopeRef{}
	if m.GuildID != "" {
		scope = d.resolveScope(s, m.ChannelID)
		color = roleColor(s, m.Author.ID, m.ChannelID)
	}

	msg := inboundFromMessage(m.Message, selfID, scope, color)
	d.logger.Debug("discord message received",
		"channel_id", m.ChannelID,
		"message_id", m.ID,
		"scope", scope.ID,
		"content_len", len(m.Content),
	)
	d.bus.Publish(msg)
}

// resolveScope returns the category of a guild channel. Threads resolve
// through their parent channel.
func (d *Discord) resolveScope(s *discordgo.Session, channelID string) domain.ScopeRef {
	ch := d.channel(s, channelID)
	if ch == nil {
		return domain.ScopeRef{Scoped: true}
	}
	if ch.IsThread() && ch.ParentID != "" {
		if parent := d.channel(s, ch.ParentID); parent != nil {
			ch = parent
		}
	}
	return domain.ScopeRef{ID: ch.ParentID, Scoped: true}
}

func (d *Discord) channel(s *discordgo.Session, id string) *discordgo.Channel {
	if ch, err := s.State.Channel(id); err == nil {
		return ch
	}
	ch, err := s.Channel(id)
	if err != nil {
		d.logger.Warn("discord channel lookup failed", "channel_id", id, "err", err)
		return nil
	}
	return ch
}

// roleColor returns the member's top role color, nil when uncolored.
func roleColor(s *discordgo.Session, userID, channelID string) *domain.Color {
	c := s.State.UserColor(userID, channelID)
	if c == 0 {
		return nil
	}
	color := domain.Color(c)
	return &color
}

func (d *Discord) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()
	if data.Name != discordCommandName {
		return
	}

	// Providers can take longer than the 3s acknowledgement window.
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		d.logger.Error("discord interaction ack failed", "interaction_id", i.ID, "err", err)
		metrics.DeliveryFailures.WithLabelValues(discordName).Inc()
		return
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	var color *domain.Color
	if i.GuildID != "" && user != nil {
		color = roleColor(s, user.ID, i.ChannelID)
	}

	d.bus.Publish(inboundFromCommand(i.Interaction, data, color))
}

func (d *Discord) registerCommands() {
	cmd := translateCommand()
	if _, err := d.session.ApplicationCommandCreate(d.applicationID(), d.guildID, cmd); err != nil {
		d.logger.Warn("failed to register application command", "command", cmd.Name, "guild_id", d.guildID, "err", err)
		return
	}
	d.logger.Info("application command registered", "command", cmd.Name, "guild_id", d.guildID)
}

func (d *Discord) applicationID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.appID != "" {
		return d.appID
	}
	return d.session.State.User.ID
}

func translateCommand() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        discordCommandName,
		Description: "Translate text into another language",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "The text to translate",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "to",
				Description: "The language to translate to",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "from",
				Description: "The language to translate from (defaults to auto-detect)",
				Required:    false,
			},
		},
	}
}

// deliver is the outbound handler registered on the bus.
func (d *Discord) deliver(msg domain.OutboundMessage) {
	var err error
	if msg.InteractionToken != "" {
		err = d.respond(msg)
	} else {
		err = d.reply(msg)
	}
	if err != nil {
		metrics.DeliveryFailures.WithLabelValues(discordName).Inc()
		d.logger.Error("discord delivery failed", "chat_id", msg.ChatID, "reply_to", msg.ReplyTo, "err", err)
	}
}

// reply threads the embed under the source message without pinging its author.
func (d *Discord) reply(msg domain.OutboundMessage) error {
	if msg.Presentation == nil {
		return nil
	}
	_, err := d.session.ChannelMessageSendComplex(msg.ChatID, replyMessage(msg))
	return err
}

// respond completes a deferred interaction. Failures replace the deferred
// reply with an ephemeral notice.
func (d *Discord) respond(msg domain.OutboundMessage) error {
	interaction := &discordgo.Interaction{AppID: d.applicationID(), Token: msg.InteractionToken}

	if msg.Presentation != nil {
		embeds := []*discordgo.MessageEmbed{embedFor(msg.Presentation)}
		_, err := d.session.InteractionResponseEdit(interaction, &discordgo.WebhookEdit{Embeds: &embeds})
		return err
	}

	if err := d.session.InteractionResponseDelete(interaction); err != nil {
		d.logger.Warn("discord deferred response delete failed", "err", err)
	}
	_, err := d.session.FollowupMessageCreate(interaction, false, &discordgo.WebhookParams{
		Content: msg.Error,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	return err
}

func replyMessage(msg domain.OutboundMessage) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{embedFor(msg.Presentation)},
		AllowedMentions: &discordgo.MessageAllowedMentions{RepliedUser: false},
	}
	if msg.ReplyTo != "" {
		send.Reference = &discordgo.MessageReference{
			MessageID: msg.ReplyTo,
			ChannelID: msg.ChatID,
		}
	}
	return send
}

// embedFor renders a presentation as a Discord embed.
func embedFor(p *domain.Presentation) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Description: truncate(p.Body, discordMaxDescription),
		Footer:      &discordgo.MessageEmbedFooter{Text: p.Footer},
		Author: &discordgo.MessageEmbedAuthor{
			Name:    p.AuthorName,
			URL:     p.AuthorURL,
			IconURL: p.AuthorIconURL,
		},
	}
	if p.AccentColor != nil {
		e.Color = int(*p.AccentColor)
	}
	return e
}

func displayName(u *discordgo.User, member *discordgo.Member) string {
	if member != nil && member.Nick != "" {
		return member.Nick
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// jumpURL links to a message; DMs use the @me pseudo guild.
func jumpURL(guildID, channelID, messageID string) string {
	if guildID == "" {
		guildID = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

func inboundFromMessage(m *discordgo.Message, selfID string, scope domain.ScopeRef, color *domain.Color) domain.InboundMessage {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return domain.InboundMessage{
		Channel:   discordName,
		Kind:      domain.KindMessage,
		ChatID:    m.ChannelID,
		MessageID: m.ID,
		GuildID:   m.GuildID,
		Scope:     scope,
		FromSelf:  selfID != "" && m.Author.ID == selfID,
		Author: domain.Author{
			ID:          m.Author.ID,
			DisplayName: displayName(m.Author, m.Member),
			AvatarURL:   m.Author.AvatarURL(""),
			AccentColor: color,
		},
		Content:   m.Content,
		SourceURL: jumpURL(m.GuildID, m.ChannelID, m.ID),
		Timestamp: ts,
	}
}

func inboundFromCommand(i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData, color *domain.Color) domain.InboundMessage {
	args := &domain.CommandArgs{}
	for _, opt := range data.Options {
		if opt.Type != discordgo.ApplicationCommandOptionString {
			continue
		}
		switch opt.Name {
		case "text":
			args.Text = opt.StringValue()
		case "to":
			args.To = domain.LanguageCode(opt.StringValue())
		case "from":
			args.From = domain.LanguageCode(opt.StringValue())
		}
	}

	var author domain.Author
	user := i.User
	var member *discordgo.Member
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
		member = i.Member
	}
	if user != nil {
		author = domain.Author{
			ID:          user.ID,
			DisplayName: displayName(user, member),
			AvatarURL:   user.AvatarURL(""),
			AccentColor: color,
		}
	}

	return domain.InboundMessage{
		Channel:          discordName,
		Kind:             domain.KindCommand,
		ChatID:           i.ChannelID,
		GuildID:          i.GuildID,
		Author:           author,
		Content:          args.Text,
		Command:          args,
		InteractionID:    i.ID,
		InteractionToken: i.Token,
		Timestamp:        time.Now(),
	}
}
