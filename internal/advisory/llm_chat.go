package advisory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"hims.app/advisor/common/llm"
	"hims.app/advisor/internal/model"
)

// SourceLLM tags replies produced by LLMChat.
const SourceLLM = "llm"

const (
	maxFollowUps = 3

	// maxHistoryMessages bounds the prior turns replayed to the model per session.
	maxHistoryMessages = 20
	maxSessions        = 1024
)

const chatSystemPrompt = `You are the setup assistant of a hospital administration console.
Answer questions about the branch the user is configuring: departments, units, rooms,
beds, specialties, resources, tax and billing setup. Be concise and concrete. If the
question cannot be answered from general hospital setup knowledge and the page context
given, say so and suggest where in the console the user can look.`

// LLMChat answers chat turns with a language model instead of the remote
// advisory service. Each session keeps its recent turns in memory; the least
// recently used sessions are forgotten first.
type LLMChat struct {
	client llm.Client

	mu       sync.Mutex
	sessions *lru.Cache[string, []llm.Message]
}

func NewLLMChat(client llm.Client) *LLMChat {
	sessions, err := lru.New[string, []llm.Message](maxSessions)
	if err != nil {
		panic(err)
	}
	return &LLMChat{client: client, sessions: sessions}
}

func (c *LLMChat) Chat(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error) {
	start := time.Now()

	sessionID := ""
	if req.SessionID != nil {
		sessionID = *req.SessionID
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer, err := c.client.Answer(ctx, llm.Request{
		SystemPrompt: chatSystemPrompt,
		History:      c.history(sessionID),
		UserPrompt:   renderChatPrompt(req),
		Temperature:  llm.Temp(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("llm chat: %w", err)
	}
	text := strings.TrimSpace(answer.Text)
	c.remember(sessionID, req.Message, text)

	slog.DebugContext(ctx, "llm chat turn answered",
		"model", c.client.Model(),
		"prompt_tokens", answer.PromptTokens,
		"completion_tokens", answer.CompletionTokens)

	followUp := answer.FollowUp
	if len(followUp) > maxFollowUps {
		followUp = followUp[:maxFollowUps]
	}

	return &model.ChatReply{
		Answer:     text,
		SourceTag:  SourceLLM,
		SessionID:  sessionID,
		FollowUp:   followUp,
		DurationMs: time.Since(start).Milliseconds(),
	}, nil
}

func (c *LLMChat) history(sessionID string) []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs, _ := c.sessions.Get(sessionID)
	return slices.Clone(msgs)
}

func (c *LLMChat) remember(sessionID, question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs, _ := c.sessions.Peek(sessionID)
	msgs = append(slices.Clone(msgs),
		llm.Message{Role: "user", Content: question},
		llm.Message{Role: "assistant", Content: answer},
	)
	if len(msgs) > maxHistoryMessages {
		msgs = msgs[len(msgs)-maxHistoryMessages:]
	}
	c.sessions.Add(sessionID, msgs)
}

func renderChatPrompt(req model.ChatRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Branch: %s\n", req.Scope)

	if pc := req.PageContext; pc != nil {
		fmt.Fprintf(&b, "Current page: %s (%s)\n", pc.Module, pc.Action)
		if pc.EntityID != nil {
			fmt.Fprintf(&b, "Entity: %s\n", *pc.EntityID)
		}
		if len(pc.FormSnapshot) > 0 {
			keys := make([]string, 0, len(pc.FormSnapshot))
			for k := range pc.FormSnapshot {
				keys = append(keys, k)
			}
			slices.Sort(keys)

			b.WriteString("Form values:\n")
			for _, k := range keys {
				fmt.Fprintf(&b, "- %s: %v\n", k, pc.FormSnapshot[k])
			}
		}
	}

	fmt.Fprintf(&b, "\nQuestion: %s", req.Message)
	return b.String()
}
