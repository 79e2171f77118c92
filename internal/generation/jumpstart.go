package generation

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Chat roles understood by JumpStart Llama 2 chat models.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one turn of a JumpStart chat dialog.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Parameters are the text generation parameters sent with every request.
type Parameters struct {
	DoSample          bool    `json:"do_sample"`
	MaxNewTokens      int     `json:"max_new_tokens"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	ReturnFullText    bool    `json:"return_full_text"`
	Seed              int     `json:"seed"`
	Temperature       float64 `json:"temperature"`
	TopK              int     `json:"top_k"`
	TopP              float64 `json:"top_p"`
	TypicalP          float64 `json:"typical_p"`
}

// TestCaseParameters returns the defaults for test-case generation.
func TestCaseParameters() Parameters {
	return Parameters{
		DoSample:          true,
		MaxNewTokens:      2048,
		RepetitionPenalty: 1.03,
		Seed:              42,
		Temperature:       0.5,
		TopK:              50,
		TopP:              0.95,
		TypicalP:          0.95,
	}
}

// StepDefinitionParameters returns the defaults for step-definition
// generation. They differ from TestCaseParameters only in temperature.
func StepDefinitionParameters() Parameters {
	p := TestCaseParameters()
	p.Temperature = 0.1
	return p
}

// jumpStartRequest is the body posted to a JumpStart chat endpoint.
type jumpStartRequest struct {
	Inputs     [][]Message `json:"inputs"`
	Parameters Parameters  `json:"parameters"`
}

// BuildInputs wraps a query and optional system prompt into a single-dialog
// batch.
func BuildInputs(query, system string) [][]Message {
	dialog := make([]Message, 0, 2)
	if system != "" {
		dialog = append(dialog, Message{Role: RoleSystem, Content: system})
	}
	dialog = append(dialog, Message{Role: RoleUser, Content: query})
	return [][]Message{dialog}
}

// ErrEmptyResponse is returned when the endpoint answers with no generations.
var ErrEmptyResponse = errors.New("empty generation response")

type jumpStartGeneration struct {
	Generation Message `json:"generation"`
}

// ParseResponse extracts the content of the first generation.
func ParseResponse(raw []byte) (string, error) {
	var out []jumpStartGeneration
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode generation response: %w", err)
	}
	if len(out) == 0 {
		return "", ErrEmptyResponse
	}
	return out[0].Generation.Content, nil
}
