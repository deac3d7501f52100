package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/eventstream"
	"github.com/papercomputeco/mentor/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	var publisher *nop.Publisher

	BeforeEach(func() {
		publisher = nop.NewPublisher()
	})

	It("accepts a valid event", func() {
		err := publisher.PublishTeaching(context.Background(), &eventstream.TeachingStoredEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeTeachingStored,
			Origin:        eventstream.OriginTeach,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a nil event", func() {
		err := publisher.PublishTeaching(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilEvent))
	})

	It("closes without error", func() {
		Expect(publisher.Close()).To(Succeed())
	})
})
