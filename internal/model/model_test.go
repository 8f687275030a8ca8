package model_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hims.app/advisor/internal/model"
)

var _ = Describe("PageContext", func() {
	It("clones the form snapshot and entity id", func() {
		id := "42"
		orig := &model.PageContext{
			Module:       "room",
			Action:       model.ActionEdit,
			EntityID:     &id,
			FormSnapshot: map[string]any{"code": "ICU-1"},
		}

		clone := orig.Clone()
		orig.FormSnapshot["code"] = "WARD-2"
		*orig.EntityID = "43"

		Expect(clone.FormSnapshot).To(HaveKeyWithValue("code", "ICU-1"))
		Expect(*clone.EntityID).To(Equal("42"))
	})

	It("clones nil to nil", func() {
		var c *model.PageContext
		Expect(c.Clone()).To(BeNil())
	})

	DescribeTable("validates actions",
		func(a model.Action, valid bool) {
			Expect(a.Valid()).To(Equal(valid))
		},
		Entry("create", model.ActionCreate, true),
		Entry("view", model.ActionView, true),
		Entry("delete", model.Action("delete"), false),
	)
})

var _ = Describe("MergeWarnings", func() {
	warn := func(msg string) model.FieldWarning {
		return model.FieldWarning{Level: model.LevelWarning, Message: msg}
	}

	It("drops remote warnings already present locally", func() {
		merged := model.MergeWarnings(
			[]model.FieldWarning{warn("a"), warn("b")},
			[]model.FieldWarning{warn("b"), warn("c"), warn("c")},
		)
		Expect(merged).To(HaveLen(3))
		Expect(merged[0].Message).To(Equal("a"))
		Expect(merged[1].Message).To(Equal("b"))
		Expect(merged[2].Message).To(Equal("c"))
	})

	It("returns an empty slice for no input", func() {
		Expect(model.MergeWarnings(nil, nil)).To(BeEmpty())
	})
})

var _ = Describe("HealthSnapshot.BadgeCounts", func() {
	It("groups blockers and warnings per area", func() {
		h := &model.HealthSnapshot{TopIssues: []model.HealthIssue{
			{ID: "1", Severity: model.SeverityBlocker, Area: "infrastructure"},
			{ID: "2", Severity: model.SeverityWarning, Area: "infrastructure"},
			{ID: "3", Severity: model.SeverityWarning, Area: ""},
			{ID: "4", Severity: model.SeverityInfo, Area: "billing"},
		}}

		counts := h.BadgeCounts()
		Expect(counts).To(HaveLen(2))
		Expect(counts["infrastructure"]).To(Equal(model.BadgeCount{Blockers: 1, Warnings: 1}))
		Expect(counts["general"]).To(Equal(model.BadgeCount{Warnings: 1}))
	})

	It("handles a nil snapshot", func() {
		var h *model.HealthSnapshot
		Expect(h.BadgeCounts()).To(BeEmpty())
	})
})

var _ = Describe("InsightSet", func() {
	It("converts the epoch seconds timestamp", func() {
		s := &model.InsightSet{GeneratedAt: 1767225600.5}
		Expect(s.GeneratedTime().UTC()).To(Equal(time.Date(2026, 1, 1, 0, 0, 0, 500_000_000, time.UTC)))
	})
})
