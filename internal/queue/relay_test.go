package queue_test

import (
	"context"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"hims.app/advisor/internal/queue"
)

type countingBus struct {
	n atomic.Int32
}

func (b *countingBus) Publish() { b.n.Add(1) }

func message(origin string) *redis.Message {
	payload, err := queue.Envelope{Origin: origin, Source: "rooms.update", At: time.Now()}.Encode()
	Expect(err).NotTo(HaveOccurred())
	return &redis.Message{Channel: "advisor:data-changed", Payload: payload}
}

var _ = Describe("Envelope", func() {
	It("round-trips through its wire form", func() {
		at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		payload, err := queue.Envelope{Origin: "2", Source: "unit.create", At: at}.Encode()
		Expect(err).NotTo(HaveOccurred())

		env, err := queue.ParseEnvelope(payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(env.Origin).To(Equal("2"))
		Expect(env.Source).To(Equal("unit.create"))
		Expect(env.At.Equal(at)).To(BeTrue())
	})

	It("rejects an envelope without origin", func() {
		_, err := queue.ParseEnvelope(`{"source":"x"}`)
		Expect(err).To(MatchError(ContainSubstring("missing origin")))
	})
})

var _ = Describe("Relay", func() {
	var (
		bus   *countingBus
		relay *queue.Relay
		msgs  chan *redis.Message
	)

	BeforeEach(func() {
		bus = &countingBus{}
		relay = queue.NewRelay(nil, "advisor:data-changed", "1", bus)
		msgs = make(chan *redis.Message, 8)
	})

	It("republishes foreign announcements and skips its own", func() {
		msgs <- message("2")
		msgs <- message("1")
		msgs <- &redis.Message{Payload: "garbage"}
		msgs <- message("3")
		close(msgs)

		Expect(relay.Consume(context.Background(), msgs)).To(Succeed())
		Expect(bus.n.Load()).To(Equal(int32(2)))
	})

	It("returns the context error when cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(relay.Consume(ctx, msgs)).To(MatchError(context.Canceled))
		Expect(bus.n.Load()).To(BeZero())
	})
})
