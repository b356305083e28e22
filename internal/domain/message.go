package domain

import "time"

// MessageKind distinguishes ordinary chat traffic from explicit commands.
type MessageKind string

const (
	KindMessage MessageKind = "message"
	KindCommand MessageKind = "command"
)

// Color is a 24-bit RGB value as used by embed accents.
type Color int

// Author describes who wrote a message or invoked a command.
type Author struct {
	ID          string
	DisplayName string
	AvatarURL   string
	AccentColor *Color
}

// ScopeRef identifies the platform grouping a message originated from
// (a Discord category, a Telegram chat). Unscoped sources such as direct
// messages carry Scoped=false.
type ScopeRef struct {
	ID     string
	Scoped bool
}

// RawMessage is the immutable text and author context fed into the relay.
type RawMessage struct {
	Text              string
	AuthorDisplayName string
	AuthorAvatarURL   string
	AuthorAccentColor *Color
	SourceURL         string
}

// CommandArgs are the explicit inputs of a manual translate command.
type CommandArgs struct {
	Text string
	To   LanguageCode
	From LanguageCode // empty = provider auto-detection
}

type InboundMessage struct {
	Channel   string
	Kind      MessageKind
	ChatID    string
	MessageID string
	GuildID   string
	Scope     ScopeRef
	FromSelf  bool
	Author    Author
	Content   string
	SourceURL string
	Command   *CommandArgs

	// Interaction fields are set for Discord application commands.
	InteractionID    string
	InteractionToken string

	Timestamp time.Time
}

// Raw projects the inbound message onto the relay's input model.
func (m InboundMessage) Raw() RawMessage {
	return RawMessage{
		Text:              m.Content,
		AuthorDisplayName: m.Author.DisplayName,
		AuthorAvatarURL:   m.Author.AvatarURL,
		AuthorAccentColor: m.Author.AccentColor,
		SourceURL:         m.SourceURL,
	}
}

type OutboundMessage struct {
	Channel          string
	ChatID           string
	ReplyTo          string // message ID to thread the reply under
	InteractionToken string // set when answering a command
	Presentation     *Presentation
	Error            string // user-visible failure notice for commands
}
