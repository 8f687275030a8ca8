package pagecontext_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hims.app/advisor/internal/model"
	"hims.app/advisor/internal/pagecontext"
)

var _ = Describe("Store", func() {
	var store *pagecontext.Store

	BeforeEach(func() {
		store = pagecontext.New()
	})

	It("starts empty", func() {
		Expect(store.Get()).To(BeNil())
	})

	It("keeps the last writer", func() {
		store.Set(&model.PageContext{Module: "room", Action: model.ActionList})
		store.Set(&model.PageContext{Module: "unit", Action: model.ActionCreate})

		Expect(store.Get().Module).To(Equal("unit"))
	})

	It("isolates readers from later mutation of the form snapshot", func() {
		form := map[string]any{"code": "ICU"}
		store.Set(&model.PageContext{Module: "unit", Action: model.ActionEdit, FormSnapshot: form})
		form["code"] = "WARD"

		got := store.Get()
		Expect(got.FormSnapshot).To(HaveKeyWithValue("code", "ICU"))

		got.FormSnapshot["code"] = "OPD"
		Expect(store.Get().FormSnapshot).To(HaveKeyWithValue("code", "ICU"))
	})

	It("clears the slot on release", func() {
		release := store.Register(&model.PageContext{Module: "room", Action: model.ActionView})
		Expect(store.Get()).NotTo(BeNil())

		release()
		Expect(store.Get()).To(BeNil())
	})

	It("lets a later set win over an out-of-order release", func() {
		releaseA := store.Register(&model.PageContext{Module: "room", Action: model.ActionList})
		releaseA()
		store.Register(&model.PageContext{Module: "unit", Action: model.ActionList})

		releaseA()
		Expect(store.Get().Module).To(Equal("unit"))
	})
})
