package chat

import (
	"strings"

	"rag-chat-backend/internal/session"
)

const systemInstructions = "You are a knowledgeable and confident assistant for the product knowledge base. " +
	"Your responses should be direct, clear, and informative. " +
	"When using information from the provided context, be confident in your answers " +
	"and use it to provide specific details. " +
	"Only express uncertainty when no relevant information is found in the context. " +
	"Keep responses concise and to the point."

// BuildPrompt assembles the completion prompt: system instructions,
// retrieved context, the last K history exchanges, then the current
// message.
func BuildPrompt(contextText string, history []session.Exchange, message string) string {
	var b strings.Builder
	b.WriteString(systemInstructions)

	if contextText != "" {
		b.WriteString("\n\nContext:\n")
		b.WriteString(contextText)
	}

	if len(history) > 0 {
		b.WriteString("\n\nConversation so far:")
		for _, ex := range history {
			b.WriteString("\n")
			b.WriteString(roleLabel(ex.Role))
			b.WriteString(": ")
			b.WriteString(ex.Text)
		}
	}

	b.WriteString("\n\nUser: ")
	b.WriteString(message)
	b.WriteString("\nAssistant:")

	return b.String()
}

func roleLabel(role string) string {
	if role == "assistant" {
		return "Assistant"
	}
	return "User"
}
