package gemini

import (
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// GenAI decodes the reply into the google.golang.org/genai response type for
// callers that already work with that SDK.
func (r *Response) GenAI() (*genai.GenerateContentResponse, error) {
	var out genai.GenerateContentResponse
	if err := json.Unmarshal(r.raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode as genai response: %w", ErrResponseUnusable, err)
	}
	return &out, nil
}

// MessageFromGenAI converts SDK content into a Message. The content is
// serialized once and kept verbatim, so fields this package does not model
// survive a round trip.
func MessageFromGenAI(content *genai.Content) (Message, error) {
	if content == nil {
		return Message{}, configErrorf("nil genai content")
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return Message{}, fmt.Errorf("encode genai content: %w", err)
	}
	return MessageFromRaw(raw)
}

// MessagesFromGenAI converts a genai history, for example one kept by a
// genai chat session, so it can be passed to AddAllMessages.
func MessagesFromGenAI(contents []*genai.Content) ([]Message, error) {
	messages := make([]Message, 0, len(contents))
	for i, c := range contents {
		m, err := MessageFromGenAI(c)
		if err != nil {
			return nil, fmt.Errorf("content %d: %w", i, err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}
