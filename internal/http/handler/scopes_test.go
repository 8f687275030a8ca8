package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hims.app/advisor/internal/http/dto"
	"hims.app/advisor/internal/http/handler"
	"hims.app/advisor/internal/insight"
	"hims.app/advisor/internal/model"
)

var _ = Describe("ScopeHandler", func() {
	var (
		health   *mockHealthSource
		insights *mockInsightSource
		router   *gin.Engine
	)

	BeforeEach(func() {
		health = &mockHealthSource{status: insight.StatusFresh}
		insights = &mockInsightSource{status: insight.StatusFresh}
		h := handler.NewScopeHandler(health, insights)
		router = gin.New()
		router.GET("/scopes/:scope/health", h.Health)
		router.GET("/scopes/:scope/insights/:module", h.Insights)
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	Describe("Health", func() {
		It("returns the snapshot with its freshness", func() {
			var gotScope model.Scope
			var gotForce bool
			health.refreshFn = func(_ context.Context, scope model.Scope, force bool) (*model.HealthSnapshot, bool) {
				gotScope, gotForce = scope, force
				return &model.HealthSnapshot{BranchID: string(scope), ConsistencyScore: 91}, true
			}

			w := get("/scopes/branch-1/health")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotScope).To(Equal(model.Scope("branch-1")))
			Expect(gotForce).To(BeFalse())

			var resp dto.HealthResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal("FRESH"))
			Expect(resp.Health.BranchID).To(Equal("branch-1"))
			Expect(resp.Health.ConsistencyScore).To(BeNumerically("==", 91))
		})

		It("passes force through", func() {
			var gotForce bool
			health.refreshFn = func(_ context.Context, scope model.Scope, force bool) (*model.HealthSnapshot, bool) {
				gotForce = force
				return &model.HealthSnapshot{}, true
			}

			get("/scopes/branch-1/health?force=true")

			Expect(gotForce).To(BeTrue())
		})

		It("returns 503 when nothing could be fetched", func() {
			health.refreshFn = func(context.Context, model.Scope, bool) (*model.HealthSnapshot, bool) {
				return nil, false
			}

			w := get("/scopes/branch-1/health")

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})

	Describe("Insights", func() {
		It("keys the lookup by scope and module", func() {
			var gotKey insight.InsightKey
			insights.status = insight.StatusStale
			insights.refreshFn = func(_ context.Context, key insight.InsightKey, _ bool) (*model.InsightSet, bool) {
				gotKey = key
				return &model.InsightSet{Module: key.Module}, true
			}

			w := get("/scopes/branch-2/insights/unit")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gotKey).To(Equal(insight.InsightKey{Scope: "branch-2", Module: "unit"}))

			var resp dto.InsightsResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Status).To(Equal("STALE"))
			Expect(resp.Insights.Module).To(Equal("unit"))
		})

		It("returns 503 when nothing could be fetched", func() {
			insights.refreshFn = func(context.Context, insight.InsightKey, bool) (*model.InsightSet, bool) {
				return nil, false
			}

			w := get("/scopes/branch-2/insights/unit")

			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		})
	})
})
