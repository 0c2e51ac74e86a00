package ollama

import "fmt"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const answerSystemPrompt = `You answer questions about company privacy policies and terms of service.
Use only the numbered excerpts in the context. Cite them as [1], [2] and so on.
If the context does not contain enough information to answer, say so directly instead of guessing.`

func buildAnswerMessages(question, contextBlock string) []chatMessage {
	user := fmt.Sprintf(`Question:
%s

Context:
%s`, question, contextBlock)

	return []chatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: user},
	}
}
