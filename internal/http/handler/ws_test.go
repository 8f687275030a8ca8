package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hims.app/advisor/internal/http/dto"
	"hims.app/advisor/internal/http/handler"
	"hims.app/advisor/internal/insight"
	"hims.app/advisor/internal/model"
	"hims.app/advisor/internal/service"
	"hims.app/advisor/internal/tab"
)

type wireEvent struct {
	Type    string          `json:"type"`
	FieldID string          `json:"fieldId"`
	Module  string          `json:"module"`
	Data    json.RawMessage `json:"data"`
}

var _ = Describe("WSHandler", func() {
	var (
		svc      *mockAdvisory
		services *service.Services
		conn     *websocket.Conn
	)

	BeforeEach(func() {
		svc = &mockAdvisory{
			fetchHealthFn: func(_ context.Context, scope model.Scope, _ bool) (*model.HealthSnapshot, error) {
				return &model.HealthSnapshot{
					BranchID:  string(scope),
					TopIssues: []model.HealthIssue{{ID: "1", Severity: model.SeverityBlocker, Area: "clinical"}},
				}, nil
			},
		}
		services = service.NewServices(context.Background(), service.ServicesConfig{
			Advisory:       svc,
			FieldDebounce:  10 * time.Millisecond,
			InsightOptions: insight.Options{TTL: time.Minute, SettleDelay: 20 * time.Millisecond},
		})
		DeferCleanup(services.Close)

		router := gin.New()
		router.GET("/ws", handler.NewWSHandler(services, 0, nil).Serve)
		server := httptest.NewServer(router)
		DeferCleanup(server.Close)

		var err error
		conn, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = conn.Close() })
	})

	send := func(msg dto.ClientMessage) {
		ExpectWithOffset(1, conn.WriteJSON(msg)).To(Succeed())
	}

	next := func(kind string) wireEvent {
		GinkgoHelper()
		deadline := time.Now().Add(2 * time.Second)
		for {
			Expect(conn.SetReadDeadline(deadline)).To(Succeed())
			var e wireEvent
			Expect(conn.ReadJSON(&e)).To(Succeed(), "waiting for %s", kind)
			if e.Type == kind {
				return e
			}
		}
	}

	It("registers the connection as a tab", func() {
		Eventually(services.Tabs().Len).Should(Equal(1))
	})

	It("pushes health and badges once a scope is set", func() {
		send(dto.ClientMessage{Type: dto.MsgScopeSet, Scope: "branch-1"})

		health := next(tab.EventHealth)
		var snapshot model.HealthSnapshot
		Expect(json.Unmarshal(health.Data, &snapshot)).To(Succeed())
		Expect(snapshot.BranchID).To(Equal("branch-1"))

		badges := next(tab.EventBadges)
		var counts map[string]model.BadgeCount
		Expect(json.Unmarshal(badges.Data, &counts)).To(Succeed())
		Expect(counts).To(HaveKeyWithValue("clinical", model.BadgeCount{Blockers: 1}))
	})

	It("streams field state for an opened field", func() {
		send(dto.ClientMessage{Type: dto.MsgFieldOpen, FieldID: "f1", Module: "unit", Field: "code"})
		send(dto.ClientMessage{Type: dto.MsgFieldChange, FieldID: "f1", Value: "A"})

		e := next(tab.EventFieldState)
		Expect(e.FieldID).To(Equal("f1"))
		Expect(string(e.Data)).To(ContainSubstring("Unit codes should be at least 2 characters."))
	})

	It("reports unknown fields as errors", func() {
		send(dto.ClientMessage{Type: dto.MsgFieldChange, FieldID: "missing", Value: "x"})

		e := next(tab.EventError)
		var payload dto.ErrorPayload
		Expect(json.Unmarshal(e.Data, &payload)).To(Succeed())
		Expect(payload.Request).To(Equal(dto.MsgFieldChange))
		Expect(payload.Message).To(Equal(tab.ErrUnknownField.Error()))
	})

	It("reports unknown message types and bad frames", func() {
		send(dto.ClientMessage{Type: "nope"})
		Expect(string(next(tab.EventError).Data)).To(ContainSubstring(`unknown message type`))

		Expect(conn.WriteMessage(websocket.TextMessage, []byte("{"))).To(Succeed())
		Expect(string(next(tab.EventError).Data)).To(ContainSubstring("invalid message"))
	})

	It("rejects chat before a scope is set", func() {
		send(dto.ClientMessage{Type: dto.MsgChatSend, Text: "how many beds?"})

		Expect(string(next(tab.EventError).Data)).To(ContainSubstring(tab.ErrNoScope.Error()))
	})

	It("answers chat turns", func() {
		svc.chatFn = func(_ context.Context, req model.ChatRequest) (*model.ChatReply, error) {
			return &model.ChatReply{Answer: "42 beds", SessionID: *req.SessionID, SourceTag: "db"}, nil
		}
		send(dto.ClientMessage{Type: dto.MsgScopeSet, Scope: "branch-1"})
		send(dto.ClientMessage{Type: dto.MsgChatSend, Text: "how many beds?"})

		var user, assistant model.ChatMessage
		Expect(json.Unmarshal(next(tab.EventChatMessage).Data, &user)).To(Succeed())
		Expect(json.Unmarshal(next(tab.EventChatMessage).Data, &assistant)).To(Succeed())
		Expect(user.Role).To(Equal(model.RoleUser))
		Expect(assistant.Content).To(Equal("42 beds"))
	})

	It("runs chat turns in the order they arrive", func() {
		var mu sync.Mutex
		var asked []string
		release := make(chan struct{})
		svc.chatFn = func(ctx context.Context, req model.ChatRequest) (*model.ChatReply, error) {
			mu.Lock()
			asked = append(asked, req.Message)
			first := len(asked) == 1
			mu.Unlock()
			if first {
				select {
				case <-release:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			return &model.ChatReply{Answer: "re: " + req.Message, SessionID: *req.SessionID}, nil
		}
		snapshot := func() []string {
			mu.Lock()
			defer mu.Unlock()
			return append([]string(nil), asked...)
		}

		send(dto.ClientMessage{Type: dto.MsgScopeSet, Scope: "branch-1"})
		var want []string
		for i := 0; i < 10; i++ {
			text := fmt.Sprintf("m%02d", i)
			want = append(want, text)
			send(dto.ClientMessage{Type: dto.MsgChatSend, Text: text})
		}

		Eventually(snapshot).Should(HaveLen(1))
		close(release)

		Eventually(snapshot).Should(Equal(want))
	})

	It("closes the tab when the client goes away", func() {
		Eventually(services.Tabs().Len).Should(Equal(1))

		Expect(conn.Close()).To(Succeed())

		Eventually(services.Tabs().Len).Should(Equal(0))
	})
})

var _ = Describe("WSHandler origins", func() {
	dial := func(allowed []string, origin string) (*http.Response, error) {
		GinkgoHelper()
		services := service.NewServices(context.Background(), service.ServicesConfig{Advisory: &mockAdvisory{}})
		DeferCleanup(services.Close)

		router := gin.New()
		router.GET("/ws", handler.NewWSHandler(services, 0, allowed).Serve)
		server := httptest.NewServer(router)
		DeferCleanup(server.Close)

		header := http.Header{}
		if origin != "" {
			header.Set("Origin", origin)
		}
		conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", header)
		if conn != nil {
			DeferCleanup(func() { _ = conn.Close() })
		}
		return resp, err
	}

	It("rejects a foreign origin by default", func() {
		resp, err := dial(nil, "https://elsewhere.example")

		Expect(err).To(MatchError(websocket.ErrBadHandshake))
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
	})

	It("accepts clients that send no origin", func() {
		_, err := dial(nil, "")

		Expect(err).NotTo(HaveOccurred())
	})

	It("accepts only configured origins", func() {
		allowed := []string{"https://hims.example"}

		_, err := dial(allowed, "https://hims.example")
		Expect(err).NotTo(HaveOccurred())

		resp, err := dial(allowed, "https://elsewhere.example")
		Expect(err).To(MatchError(websocket.ErrBadHandshake))
		Expect(resp.StatusCode).To(Equal(http.StatusForbidden))
	})

	It("accepts any origin with a wildcard", func() {
		_, err := dial([]string{"*"}, "https://elsewhere.example")

		Expect(err).NotTo(HaveOccurred())
	})
})
