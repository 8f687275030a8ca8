package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"hims.app/advisor/common/logger"
	"hims.app/advisor/internal/http/dto"
	"hims.app/advisor/internal/model"
	"hims.app/advisor/internal/tab"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	DefaultOutboxSize = 64
	chatQueueSize     = 16
)

var errMissingFieldID = errors.New("fieldId is required")

type TabOpener interface {
	OpenTab(ctx context.Context, id string, sink tab.Sink) *tab.Tab
	CloseTab(t *tab.Tab)
}

// WSHandler serves one browser tab per websocket connection.
type WSHandler struct {
	tabs       TabOpener
	upgrader   websocket.Upgrader
	outboxSize int
}

// NewWSHandler builds the tab handler. With no allowed origins the upgrade
// only accepts same-host requests; "*" accepts any origin.
func NewWSHandler(tabs TabOpener, outboxSize int, allowedOrigins []string) *WSHandler {
	if outboxSize <= 0 {
		outboxSize = DefaultOutboxSize
	}
	return &WSHandler{
		tabs: tabs,
		upgrader: websocket.Upgrader{
			CheckOrigin: checkOrigin(allowedOrigins),
		},
		outboxSize: outboxSize,
	}
}

// checkOrigin returns nil for an empty list so gorilla applies its
// same-origin check.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimSuffix(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	tabID := uuid.NewString()
	ctx, cancel := context.WithCancel(logger.WithLogFields(c.Request.Context(), logger.LogFields{
		TabID:     logger.Ptr(tabID),
		Component: "advisor.gateway.ws",
	}))
	defer cancel()

	out := newOutbox(ctx, conn, h.outboxSize)
	t := h.tabs.OpenTab(ctx, tabID, out)
	slog.InfoContext(ctx, "tab connected")

	var writers sync.WaitGroup
	writers.Add(1)
	go func() {
		defer writers.Done()
		out.run()
	}()

	// Chat turns run on one worker so they reach the manager in arrival order.
	chats := make(chan string, chatQueueSize)
	var turns sync.WaitGroup
	turns.Add(1)
	go func() {
		defer turns.Done()
		for text := range chats {
			if ctx.Err() != nil {
				continue
			}
			t.SendChat(ctx, text)
		}
	}()

	defer func() {
		h.tabs.CloseTab(t)
		cancel()
		close(chats)
		turns.Wait()
		out.close()
		writers.Wait()
		slog.InfoContext(ctx, "tab disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "websocket read failed", "error", err)
			}
			return
		}

		var msg dto.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			out.Emit(errorEvent("", "invalid message"))
			continue
		}

		if msg.Type == dto.MsgChatSend {
			if t.Scope() == "" {
				out.Emit(errorEvent(msg.Type, tab.ErrNoScope.Error()))
				continue
			}
			select {
			case chats <- msg.Text:
			default:
				out.Emit(errorEvent(msg.Type, "chat queue full"))
			}
			continue
		}

		if err := dispatch(t, msg); err != nil {
			slog.DebugContext(ctx, "client message rejected", "type", msg.Type, "error", err)
			out.Emit(errorEvent(msg.Type, err.Error()))
		}
	}
}

func dispatch(t *tab.Tab, msg dto.ClientMessage) error {
	switch msg.Type {
	case dto.MsgScopeSet:
		return t.SetScope(model.Scope(msg.Scope))
	case dto.MsgPageEnter:
		if msg.Page == nil {
			return errors.New("page is required")
		}
		if !msg.Page.Action.Valid() {
			return fmt.Errorf("invalid page action %q", msg.Page.Action)
		}
		return t.EnterPage(msg.Page)
	case dto.MsgPageLeave:
		t.LeavePage()
		return nil
	case dto.MsgFieldOpen:
		if msg.FieldID == "" {
			return errMissingFieldID
		}
		_, err := t.OpenField(msg.FieldID, msg.Module, msg.Field, msg.Context, msg.Value)
		return err
	case dto.MsgFieldChange:
		if msg.FieldID == "" {
			return errMissingFieldID
		}
		_, err := t.ChangeField(msg.FieldID, msg.Value, msg.Context)
		return err
	case dto.MsgFieldApply:
		_, err := t.ApplySuggestion(msg.FieldID)
		return err
	case dto.MsgFieldDismiss:
		return t.DismissSuggestion(msg.FieldID)
	case dto.MsgFieldClose:
		t.CloseField(msg.FieldID)
		return nil
	case dto.MsgInsightsWatch:
		if msg.Module == "" {
			return errors.New("module is required")
		}
		return t.WatchInsights(msg.Module)
	case dto.MsgInsightsUnwatch:
		t.UnwatchInsights(msg.Module)
		return nil
	case dto.MsgHealthRefresh:
		return t.RefreshHealth()
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func errorEvent(request, message string) tab.Event {
	return tab.Event{
		Type: tab.EventError,
		Data: dto.ErrorPayload{Message: message, Request: request},
	}
}

// outbox is the tab's Sink. Events are queued and written by a single
// goroutine; a full queue drops the event.
type outbox struct {
	ctx    context.Context
	conn   *websocket.Conn
	events chan tab.Event
	done   chan struct{}
	once   sync.Once
}

func newOutbox(ctx context.Context, conn *websocket.Conn, size int) *outbox {
	return &outbox{
		ctx:    ctx,
		conn:   conn,
		events: make(chan tab.Event, size),
		done:   make(chan struct{}),
	}
}

func (o *outbox) Emit(e tab.Event) {
	select {
	case <-o.done:
		return
	default:
	}
	select {
	case o.events <- e:
	default:
		slog.WarnContext(o.ctx, "outbound queue full, dropping event", "type", e.Type)
	}
}

func (o *outbox) run() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e := <-o.events:
			_ = o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteJSON(e); err != nil {
				slog.WarnContext(o.ctx, "websocket write failed", "type", e.Type, "error", err)
				o.close()
				return
			}
		case <-ticker.C:
			_ = o.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := o.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				o.close()
				return
			}
		case <-o.done:
			return
		}
	}
}

func (o *outbox) close() {
	o.once.Do(func() { close(o.done) })
}
