// Package llm holds the OpenAI chat session. One session is created at
// startup with the model id, the system instruction and the tool
// catalogue; every user turn and tool-result batch grows the same
// message history.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	config "arbor/app/configs"
	"arbor/app/core/tools"
	"arbor/app/pkg/types"
)

// DefaultSystemPrompt is the instruction the session is seeded with.
const DefaultSystemPrompt = `You are a friendly task management assistant. You help the user manage a hierarchical list of tasks and subtasks.

Use the provided tools to inspect or change the task list. When the user asks for several changes in one message, call one tool per change. After the tools run you will receive their results; answer with a short confirmation of what actually happened, including when nothing matched. Keep answers to one or two sentences and never invent task ids.`

// Session is a single conversation with the configured model.
type Session struct {
	client openai.Client
	model  openai.ChatModel

	mu       sync.Mutex
	messages []openai.ChatCompletionMessageParamUnion
	tools    []openai.ChatCompletionToolUnionParam
}

// NewSession reads the API key from the configured environment variable
// and prepares the message history. No request is sent until Send.
func NewSession(cfg config.ModelConfig, systemPrompt string, schemas []tools.Schema) (*Session, error) {
	keyEnv := strings.TrimSpace(cfg.APIKeyEnv)
	if keyEnv == "" {
		return nil, fmt.Errorf("model api key environment variable is not configured")
	}
	key := strings.TrimSpace(os.Getenv(keyEnv))
	if key == "" {
		return nil, fmt.Errorf("environment variable %s is not set", keyEnv)
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return nil, fmt.Errorf("model name is not configured")
	}

	s := &Session{
		client: openai.NewClient(option.WithAPIKey(key)),
		model:  openai.ChatModel(name),
		tools:  toolParams(schemas),
	}
	if strings.TrimSpace(systemPrompt) != "" {
		s.messages = append(s.messages, openai.SystemMessage(systemPrompt))
	}
	return s, nil
}

// Send appends the user text and requests the next model reply.
func (s *Session) Send(ctx context.Context, text string) (types.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, openai.UserMessage(text))
	return s.complete(ctx)
}

// SendToolResults appends one tool message per result and requests the
// follow-up reply. Results must belong to the calls of the previous
// reply, in any order.
func (s *Session) SendToolResults(ctx context.Context, results []types.ToolResult) (types.Reply, error) {
	if len(results) == 0 {
		return types.Reply{}, fmt.Errorf("no tool results to send")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, res := range results {
		s.messages = append(s.messages, openai.ToolMessage(res.Content, res.CallID))
	}
	return s.complete(ctx)
}

func (s *Session) complete(ctx context.Context) (types.Reply, error) {
	completion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: s.messages,
		Tools:    s.tools,
	})
	if err != nil {
		return types.Reply{}, fmt.Errorf("model request failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return types.Reply{}, fmt.Errorf("model returned no choices")
	}

	msg := completion.Choices[0].Message
	reply, err := replyFromMessage(msg)
	if err != nil {
		return types.Reply{}, err
	}
	// The assistant turn joins the history even when it carried tool
	// calls, so the follow-up request sees what it asked for.
	s.messages = append(s.messages, msg.ToParam())
	return reply, nil
}

func replyFromMessage(msg openai.ChatCompletionMessage) (types.Reply, error) {
	reply := types.Reply{Text: strings.TrimSpace(msg.Content)}
	for _, call := range msg.ToolCalls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			continue
		}
		args := map[string]interface{}{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return types.Reply{}, fmt.Errorf("malformed arguments for tool %s: %w", name, err)
			}
		}
		reply.Calls = append(reply.Calls, types.ToolCall{
			ID:   call.ID,
			Name: name,
			Args: args,
		})
	}
	return reply, nil
}

func toolParams(schemas []tools.Schema) []openai.ChatCompletionToolUnionParam {
	params := make([]openai.ChatCompletionToolUnionParam, 0, len(schemas))
	for _, schema := range schemas {
		params = append(params, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        schema.Name,
					Description: openai.String(schema.Description),
					Parameters:  openai.FunctionParameters(schema.Parameters),
				},
			},
		})
	}
	return params
}
