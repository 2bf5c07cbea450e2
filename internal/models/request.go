package models

// Part is a single text part of a history item
type Part struct {
	Text string `json:"text"`
}

// Content is one history item as sent on the wire
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// Text joins the parts of the content with newlines
func (c Content) Text() string {
	switch len(c.Parts) {
	case 0:
		return ""
	case 1:
		return c.Parts[0].Text
	}
	text := c.Parts[0].Text
	for _, p := range c.Parts[1:] {
		text += "\n" + p.Text
	}
	return text
}

// ChatRequest is the body of both the /chat and /stream requests
type ChatRequest struct {
	Chat    string    `json:"chat"`
	History []Content `json:"history"`
}

// NewChatRequest builds a request from the conversation so far and the new
// user text. History is never nil so it encodes as [] rather than null.
func NewChatRequest(history []Message, chat string) ChatRequest {
	contents := make([]Content, 0, len(history))
	for _, m := range history {
		contents = append(contents, m.Content())
	}
	return ChatRequest{
		Chat:    chat,
		History: contents,
	}
}
