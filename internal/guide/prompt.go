// internal/guide/prompt.go
package guide

import (
	"strings"
	"time"
)

// Role is the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Label is the speaker prefix used when rendering the transcript into a prompt.
func (r Role) Label() string {
	if r == RoleUser {
		return "User"
	}
	return "Assistant"
}

// Message is one immutable transcript entry.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	welcomeID      = "welcome"
	welcomeContent = "Welcome to ArtVistas! I'm your personal art guide. How can I assist you with your virtual museum experience today?"
	museumContext  = "You are helping a visitor at the ArtVistas virtual museum and art gallery."
)

// BuildPrompt renders the request sent to the provider: persona instruction,
// museum context, prior transcript in order, the new user line and a final
// "Assistant:" cue.
func BuildPrompt(persona Persona, history []Message, input string) string {
	var b strings.Builder
	b.WriteString(persona.Instruction())
	b.WriteString("\n\n")
	b.WriteString(museumContext)
	b.WriteString("\n\nPrevious conversation:\n")
	for _, m := range history {
		b.WriteString(m.Role.Label())
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nUser: ")
	b.WriteString(input)
	b.WriteString("\n\nAssistant:")
	return b.String()
}
