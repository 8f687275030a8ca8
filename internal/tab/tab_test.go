package tab_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hims.app/advisor/internal/eventbus"
	"hims.app/advisor/internal/insight"
	"hims.app/advisor/internal/model"
	"hims.app/advisor/internal/rules"
	"hims.app/advisor/internal/tab"
)

var _ = Describe("Tab", func() {
	var (
		svc    *mockAdvisory
		events *eventLog
		t      *tab.Tab
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		svc = &mockAdvisory{
			validateFieldFn: func(_ context.Context, req model.FieldValidateRequest) (*model.FieldValidation, error) {
				return &model.FieldValidation{Suggestion: &model.Suggestion{Value: map[string]any{req.Field: req.Value + "_X"}}}, nil
			},
			fetchHealthFn: func(_ context.Context, scope model.Scope, _ bool) (*model.HealthSnapshot, error) {
				return &model.HealthSnapshot{
					BranchID:  string(scope),
					TopIssues: []model.HealthIssue{{ID: "1", Severity: model.SeverityBlocker, Area: "infrastructure"}},
				}, nil
			},
			fetchInsightsFn: func(_ context.Context, scope model.Scope, module string) (*model.InsightSet, error) {
				return &model.InsightSet{Module: module, Insights: []model.Insight{{ID: string(scope)}}}, nil
			},
			chatFn: func(_ context.Context, req model.ChatRequest) (*model.ChatReply, error) {
				return &model.ChatReply{Answer: "ok", SessionID: *req.SessionID}, nil
			},
		}

		bus := eventbus.New("data-changed")
		health := insight.NewHealthCache(ctx, svc, bus, insight.Options{TTL: time.Minute})
		insights := insight.NewInsightCache(ctx, svc, bus, insight.Options{TTL: time.Minute})
		DeferCleanup(health.Close)
		DeferCleanup(insights.Close)

		events = &eventLog{}
		t = tab.New(ctx, "tab-1", tab.Deps{
			Rules:         rules.Default(),
			Fields:        svc,
			Chat:          svc,
			Health:        health,
			Insights:      insights,
			FieldDebounce: 10 * time.Millisecond,
		}, events)
		DeferCleanup(t.Close)
	})

	Describe("scope", func() {
		It("streams health and badge counts for the selected branch", func() {
			Expect(t.SetScope("branch-1")).To(Succeed())

			Eventually(func() []tab.Event { return events.OfType(tab.EventHealth) }).Should(HaveLen(1))
			Eventually(func() []tab.Event { return events.OfType(tab.EventBadges) }).Should(HaveLen(1))

			badges := events.OfType(tab.EventBadges)[0].Data.(map[string]model.BadgeCount)
			Expect(badges["infrastructure"].Blockers).To(Equal(1))
		})

		It("requires a scope before watching insights", func() {
			Expect(t.WatchInsights("rooms")).To(MatchError(tab.ErrNoScope))
			Expect(t.RefreshHealth()).To(MatchError(tab.ErrNoScope))
		})

		It("moves insight subscriptions to the new scope", func() {
			Expect(t.SetScope("branch-1")).To(Succeed())
			Expect(t.WatchInsights("rooms")).To(Succeed())
			Eventually(func() []tab.Event { return events.OfType(tab.EventInsights) }).Should(HaveLen(1))

			Expect(t.SetScope("branch-2")).To(Succeed())
			Eventually(func() []tab.Event { return events.OfType(tab.EventInsights) }).Should(HaveLen(2))

			last := events.OfType(tab.EventInsights)[1]
			Expect(last.Module).To(Equal("rooms"))
			Expect(last.Data.(*model.InsightSet).Insights[0].ID).To(Equal("branch-2"))
		})

		It("resumes watched modules after the scope is cleared and set again", func() {
			Expect(t.SetScope("branch-1")).To(Succeed())
			Expect(t.WatchInsights("rooms")).To(Succeed())
			Eventually(func() []tab.Event { return events.OfType(tab.EventInsights) }).Should(HaveLen(1))

			Expect(t.SetScope("")).To(Succeed())
			Consistently(func() []tab.Event { return events.OfType(tab.EventInsights) }, 50*time.Millisecond).Should(HaveLen(1))

			Expect(t.SetScope("branch-2")).To(Succeed())
			Eventually(func() []tab.Event { return events.OfType(tab.EventInsights) }).Should(HaveLen(2))

			last := events.OfType(tab.EventInsights)[1]
			Expect(last.Module).To(Equal("rooms"))
			Expect(last.Data.(*model.InsightSet).Insights[0].ID).To(Equal("branch-2"))
		})
	})

	Describe("fields", func() {
		It("returns local warnings and streams remote results", func() {
			state, err := t.OpenField("f1", "specialty", "code", nil, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(state.Warnings).NotTo(BeEmpty())

			Eventually(func() bool {
				states := events.OfType(tab.EventFieldState)
				if len(states) == 0 {
					return false
				}
				return states[len(states)-1].Data.(tab.FieldState).Suggestion != nil
			}).Should(BeTrue())
		})

		It("applies a suggestion and announces the value", func() {
			_, err := t.OpenField("f1", "unit", "code", nil, "ICU")
			Expect(err).NotTo(HaveOccurred())
			Eventually(func() []tab.Event { return events.OfType(tab.EventFieldState) }).Should(HaveLen(3))

			value, err := t.ApplySuggestion("f1")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal(map[string]any{"code": "ICU_X"}))

			applied := events.OfType(tab.EventFieldApplied)
			Expect(applied).To(HaveLen(1))
			Expect(applied[0].FieldID).To(Equal("f1"))
		})

		It("rejects unknown fields", func() {
			_, err := t.ChangeField("missing", "x", nil)
			Expect(err).To(MatchError(tab.ErrUnknownField))
			Expect(t.DismissSuggestion("missing")).To(MatchError(tab.ErrUnknownField))
		})

		It("forgets a closed field", func() {
			_, err := t.OpenField("f1", "unit", "code", nil, "")
			Expect(err).NotTo(HaveOccurred())
			t.CloseField("f1")

			_, err = t.ChangeField("f1", "ICU", nil)
			Expect(err).To(MatchError(tab.ErrUnknownField))
		})
	})

	Describe("page context and chat", func() {
		It("attaches the entered page to chat turns", func() {
			var seen *model.PageContext
			svc.chatFn = func(_ context.Context, req model.ChatRequest) (*model.ChatReply, error) {
				seen = req.PageContext
				return &model.ChatReply{Answer: "ok"}, nil
			}
			Expect(t.SetScope("branch-1")).To(Succeed())
			Expect(t.EnterPage(&model.PageContext{Module: "room", Action: model.ActionCreate})).To(Succeed())

			_, ok := t.SendChat(ctx, "Which rooms lack oxygen?")
			Expect(ok).To(BeTrue())
			Expect(seen).NotTo(BeNil())
			Expect(seen.Module).To(Equal("room"))
			Expect(events.OfType(tab.EventChatMessage)).To(HaveLen(2))

			t.LeavePage()
			Expect(t.PageContext()).To(BeNil())
		})

		It("resets the chat when the scope changes", func() {
			Expect(t.SetScope("branch-1")).To(Succeed())
			t.SendChat(ctx, "hi")
			Expect(t.ChatMessages()).To(HaveLen(2))

			Expect(t.SetScope("branch-2")).To(Succeed())
			Expect(t.ChatMessages()).To(BeEmpty())
		})
	})

	Describe("Close", func() {
		It("rejects further work", func() {
			Expect(t.SetScope("branch-1")).To(Succeed())
			t.Close()

			Expect(t.SetScope("branch-2")).To(MatchError(tab.ErrClosed))
			_, err := t.OpenField("f1", "unit", "code", nil, "ICU")
			Expect(err).To(MatchError(tab.ErrClosed))
			Expect(t.WatchInsights("rooms")).To(MatchError(tab.ErrClosed))
			_, ok := t.SendChat(ctx, "hi")
			Expect(ok).To(BeFalse())
		})

		It("aborts in-flight field checks", func() {
			canceled := make(chan struct{})
			svc.validateFieldFn = func(ctx context.Context, _ model.FieldValidateRequest) (*model.FieldValidation, error) {
				<-ctx.Done()
				close(canceled)
				return nil, ctx.Err()
			}
			_, err := t.OpenField("f1", "unit", "code", nil, "ICU")
			Expect(err).NotTo(HaveOccurred())
			Eventually(func() []tab.Event { return events.OfType(tab.EventFieldState) }).Should(HaveLen(2))

			t.Close()
			Expect(canceled).To(BeClosed())
		})
	})
})

var _ = Describe("Registry", func() {
	It("tracks and closes tabs", func() {
		reg := tab.NewRegistry()
		svc := &mockAdvisory{}
		t1 := tab.New(context.Background(), "a", tab.Deps{Rules: rules.Default(), Fields: svc, Chat: svc}, tab.SinkFunc(func(tab.Event) {}))
		t2 := tab.New(context.Background(), "b", tab.Deps{Rules: rules.Default(), Fields: svc, Chat: svc}, tab.SinkFunc(func(tab.Event) {}))
		reg.Add(t1)
		reg.Add(t2)
		Expect(reg.Len()).To(Equal(2))

		got, ok := reg.Get("a")
		Expect(ok).To(BeTrue())
		Expect(got).To(BeIdenticalTo(t1))

		reg.Remove("a")
		Expect(reg.Len()).To(Equal(1))

		reg.CloseAll()
		Expect(reg.Len()).To(BeZero())
		Expect(t2.SetScope("x")).To(MatchError(tab.ErrClosed))
	})
})
