package domain

// Presentation is the assembled, ready-to-render translation view.
type Presentation struct {
	Body          string
	Footer        string
	AuthorName    string
	AuthorURL     string // empty when there is no source message to link
	AuthorIconURL string
	AccentColor   *Color
}

// PresentationContext is either a MessageContext or a CommandContext.
type PresentationContext interface {
	presentationContext()
}

// MessageContext describes a relayed chat message.
type MessageContext struct {
	Author    Author
	SourceURL string
}

// CommandContext describes a manual command invocation.
type CommandContext struct {
	Author Author
}

func (MessageContext) presentationContext() {}
func (CommandContext) presentationContext() {}
