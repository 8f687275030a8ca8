package logger_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"hims.app/advisor/common/logger"
)

var _ = Describe("StartSpan", func() {
	var recorder *tracetest.SpanRecorder

	BeforeEach(func() {
		prev := otel.GetTracerProvider()
		recorder = tracetest.NewSpanRecorder()
		otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
		DeferCleanup(func() { otel.SetTracerProvider(prev) })
	})

	It("tags the span with the context component", func() {
		ctx := logger.WithLogFields(context.Background(), logger.LogFields{Component: "advisor.insight.cache"})

		sc := logger.StartSpan(ctx, "insight.fetch")
		sc.SetAttributes(attribute.String("scope", "branch-1"))
		sc.End()

		spans := recorder.Ended()
		Expect(spans).To(HaveLen(1))
		Expect(spans[0].Name()).To(Equal("insight.fetch"))
		Expect(spans[0].Attributes()).To(ContainElements(
			attribute.String("advisor.component", "advisor.insight.cache"),
			attribute.String("scope", "branch-1"),
		))
	})

	It("marks the span failed on RecordError", func() {
		sc := logger.StartSpan(context.Background(), "advisory.chat")
		sc.RecordError(nil)
		sc.RecordError(errors.New("boom"))
		sc.End()

		span := recorder.Ended()[0]
		Expect(span.Status().Code).To(Equal(codes.Error))
		Expect(span.Status().Description).To(Equal("boom"))
		Expect(span.Events()).To(HaveLen(1))
	})

	It("nests under the returned context", func() {
		parent := logger.StartSpan(context.Background(), "parent")
		child := logger.StartSpan(parent.Context(), "child")
		child.End()
		parent.End()

		spans := recorder.Ended()
		Expect(spans).To(HaveLen(2))
		Expect(spans[0].Parent().SpanID()).To(Equal(spans[1].SpanContext().SpanID()))
	})
})
