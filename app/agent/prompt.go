package agent

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// GroundedPrompt builds the prompt for document-backed answering. The model
// is restricted to the supplied context and told to admit when the answer is
// not in it; that refusal instruction is the contract that keeps retrieval
// failures from turning into fabricated answers.
func GroundedPrompt(context, question string) string {
	return fmt.Sprintf(`You are a helpful assistant that provides accurate information based on the documents you have been given.

Answer the user's question based ONLY on the following context:
%s

Question: %s

If you don't know the answer or can't find the information in the provided context, just say so - do not make up an answer.

Helpful Answer:`, context, question)
}

// OpenPrompt builds the prompt for open-domain answering when no documents
// are selected. No context framing, no refusal instruction.
func OpenPrompt(question string) string {
	return fmt.Sprintf(`You are a helpful AI assistant. Answer the following question to the best of your ability:

Question: %s

Helpful Answer:`, question)
}

// CountTokens estimates the token footprint of a prompt with a tiktoken
// encoding. The exact Gemini tokenizer is not public; gpt-3.5-turbo counts
// are close enough for a budget check.
func CountTokens(text string) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return 0, err
	}
	tokens := enc.Encode(text, nil, nil)
	return len(tokens), nil
}
