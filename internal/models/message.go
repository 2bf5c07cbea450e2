package models

// Role identifies who authored a message
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// FallbackText is committed as the model reply whenever a request fails
const FallbackText = "Error occurred"

// Message represents a chat message. Messages are immutable once appended.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// UserMessage creates a user authored message
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// ModelMessage creates a model authored message
func ModelMessage(text string) Message {
	return Message{Role: RoleModel, Text: text}
}

// IsUser reports whether the message was written by the user
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// Content converts the message to the history item shape the backend expects
func (m Message) Content() Content {
	return Content{
		Role:  string(m.Role),
		Parts: []Part{{Text: m.Text}},
	}
}
