package models

// Role identifies the author of a ChatMessage
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of a mode's conversation history.
// PhaseNumber is set only on entries produced by the research pipeline.
type ChatMessage struct {
	Role        Role   `json:"role"`
	Content     string `json:"content"`
	PhaseNumber int    `json:"phaseNumber,omitempty"`
}

// UserMessage creates a user entry
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant entry
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// PhaseMessage creates an assistant entry tagged with a research phase
func PhaseMessage(phase int, content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content, PhaseNumber: phase}
}
