// Package conversation drives the chat round trip: user text goes to
// the model, tool calls come back, results go up again, and exactly one
// assistant message closes the round.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"arbor/app/core/execlog"
	"arbor/app/core/tools"
	"arbor/app/pkg/logger"
	"arbor/app/pkg/types"
)

// ErrBusy is returned while a previous submission is still in flight.
var ErrBusy = errors.New("a reply is already in progress")

const defaultMaxToolRounds = 4

// Recorder persists transcript messages. history.Store satisfies it.
type Recorder interface {
	AppendMessage(ctx context.Context, sessionID string, msg types.ChatMessage) error
}

// Options wires a Loop. Session and Registry are required; Recorder and
// Notify may be nil.
type Options struct {
	Session       types.ModelSession
	Registry      *tools.Registry
	Recorder      Recorder
	Notify        func(types.ChatMessage)
	MaxToolRounds int
	SessionID     string
}

// Loop owns the transcript and the busy gate. A single submission runs
// at a time; tool calls within it are applied strictly in order.
type Loop struct {
	session   types.ModelSession
	registry  *tools.Registry
	recorder  Recorder
	maxRounds int
	sessionID string

	mu       sync.Mutex
	busy     bool
	notify   func(types.ChatMessage)
	messages []types.ChatMessage
}

func New(opts Options) (*Loop, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("model session is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	maxRounds := opts.MaxToolRounds
	if maxRounds <= 0 {
		maxRounds = defaultMaxToolRounds
	}
	sessionID := strings.TrimSpace(opts.SessionID)
	if sessionID == "" {
		sessionID = newSessionID()
	}
	return &Loop{
		session:   opts.Session,
		registry:  opts.Registry,
		recorder:  opts.Recorder,
		notify:    opts.Notify,
		maxRounds: maxRounds,
		sessionID: sessionID,
	}, nil
}

func (l *Loop) SessionID() string {
	return l.sessionID
}

// Busy reports whether a submission is currently being processed.
func (l *Loop) Busy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy
}

// Messages returns a copy of the transcript in append order.
func (l *Loop) Messages() []types.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// Submit runs one full round: the user message, any number of tool
// rounds up to the cap, and the closing assistant message. A transport
// failure ends the round with an apology instead of an error; mutations
// already applied stay applied.
func (l *Loop) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("message text is empty")
	}

	l.mu.Lock()
	if l.busy {
		l.mu.Unlock()
		return ErrBusy
	}
	l.busy = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.busy = false
		l.mu.Unlock()
	}()

	l.post(types.SenderUser, text)

	reply, err := l.session.Send(ctx, text)
	if err != nil {
		logger.Error("model turn failed: %v", err)
		l.apologize()
		return nil
	}

	for round := 1; len(reply.Calls) > 0; round++ {
		if round > l.maxRounds {
			logger.Error("tool round cap (%d) reached for session %s; ending turn", l.maxRounds, l.sessionID)
			l.post(types.SenderAI, "I stopped after several rounds of tool calls. The changes made so far are saved; ask me to continue if something is missing.")
			return nil
		}
		results := l.executeRound(ctx, round, reply.Calls)
		reply, err = l.session.SendToolResults(ctx, results)
		if err != nil {
			logger.Error("model follow-up failed: %v", err)
			l.apologize()
			return nil
		}
	}

	closing := strings.TrimSpace(reply.Text)
	if closing == "" {
		closing = "Done."
	}
	l.post(types.SenderAI, closing)
	return nil
}

// executeRound dispatches the batch in order, so a later call observes
// the mutations of an earlier one. Every result feeds the follow-up
// request, including failures.
func (l *Loop) executeRound(ctx context.Context, round int, calls []types.ToolCall) []types.ToolResult {
	dispatchCtx := execlog.WithMeta(ctx, execlog.Meta{SessionID: l.sessionID, Round: round})
	results := make([]types.ToolResult, 0, len(calls))
	for _, call := range calls {
		l.post(types.SenderSystem, fmt.Sprintf("Executing: %s…", call.Name))
		res := l.registry.Dispatch(dispatchCtx, call.Name, call.Args)
		content, err := json.Marshal(res)
		if err != nil {
			logger.Error("encode result for tool %s failed: %v", call.Name, err)
			content = []byte(fmt.Sprintf(`{"tool":%q,"status":%q,"message":"result could not be encoded"}`, call.Name, tools.ResultStatusFailed))
		}
		results = append(results, types.ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Content: string(content),
		})
	}
	return results
}

func (l *Loop) apologize() {
	l.post(types.SenderAI, "Sorry, something went wrong while processing your request. Any changes already made have been kept; please try again.")
}

func (l *Loop) post(sender types.Sender, text string) {
	msg := types.ChatMessage{
		ID:        newMessageID(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now().UTC(),
	}

	l.mu.Lock()
	l.messages = append(l.messages, msg)
	notify := l.notify
	l.mu.Unlock()

	if l.recorder != nil {
		// Transcript writes outlive a cancelled turn.
		if err := l.recorder.AppendMessage(context.Background(), l.sessionID, msg); err != nil {
			logger.Error("append transcript message failed: %v", err)
		}
	}
	if notify != nil {
		notify(msg)
	}
}

func newSessionID() string {
	return "sess_" + uuid.Must(uuid.NewV7()).String()
}

func newMessageID() string {
	return "msg_" + uuid.Must(uuid.NewV7()).String()
}
