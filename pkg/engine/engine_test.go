package engine_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/engine"
	"github.com/papercomputeco/mentor/pkg/eventstream"
	"github.com/papercomputeco/mentor/pkg/store"
	"github.com/papercomputeco/mentor/pkg/store/inmemory"
	"github.com/papercomputeco/mentor/pkg/teaching"
	testutils "github.com/papercomputeco/mentor/pkg/utils/test"
)

// newTestEngine wires an engine from mocks. Optional collaborators are
// included so individual specs can degrade them.
func newTestEngine() (*engine.Engine, *inmemory.Driver, *testutils.MockEmbedder, *testutils.MockVectorDriver, *testutils.MockPublisher) {
	driver := inmemory.NewDriver()
	embedder := testutils.NewMockEmbedder()
	index := testutils.NewMockVectorDriver()
	publisher := testutils.NewMockPublisher()

	eng, err := engine.New(engine.Opts{
		Store:     driver,
		Embedder:  embedder,
		Index:     index,
		Publisher: publisher,
		Logger:    zap.NewNop(),
	})
	Expect(err).NotTo(HaveOccurred())

	return eng, driver, embedder, index, publisher
}

var _ = Describe("New", func() {
	It("requires a store", func() {
		_, err := engine.New(engine.Opts{
			Embedder: testutils.NewMockEmbedder(),
			Logger:   zap.NewNop(),
		})
		Expect(err).To(HaveOccurred())
	})

	It("requires an embedder", func() {
		_, err := engine.New(engine.Opts{
			Store:  inmemory.NewDriver(),
			Logger: zap.NewNop(),
		})
		Expect(err).To(HaveOccurred())
	})

	It("requires a logger", func() {
		_, err := engine.New(engine.Opts{
			Store:    inmemory.NewDriver(),
			Embedder: testutils.NewMockEmbedder(),
		})
		Expect(err).To(HaveOccurred())
	})

	It("works without index, completer, and publisher", func() {
		eng, err := engine.New(engine.Opts{
			Store:    inmemory.NewDriver(),
			Embedder: testutils.NewMockEmbedder(),
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(eng).NotTo(BeNil())
	})
})

var _ = Describe("Teach", func() {
	var (
		eng       *engine.Engine
		driver    *inmemory.Driver
		embedder  *testutils.MockEmbedder
		index     *testutils.MockVectorDriver
		publisher *testutils.MockPublisher
		ctx       context.Context
	)

	BeforeEach(func() {
		eng, driver, embedder, index, publisher = newTestEngine()
		ctx = context.Background()
	})

	It("stores the teaching exactly once", func() {
		t, err := eng.Teach(ctx, engine.TeachRequest{
			Text:  "water boils at 100C",
			Scope: teaching.ScopeGlobal,
		})
		Expect(err).NotTo(HaveOccurred())

		recent, err := driver.Recent(ctx, store.Filter{Visibility: store.VisibilityGlobal}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(recent).To(HaveLen(1))
		Expect(recent[0].ID).To(Equal(t.ID))
	})

	It("indexes the teaching into the vector index", func() {
		t, err := eng.Teach(ctx, engine.TeachRequest{
			Text:  "water boils at 100C",
			Scope: teaching.ScopeGlobal,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(index.Points).To(HaveKey(t.ID))
		Expect(index.EnsureCalls).To(Equal(1))
	})

	It("publishes a stored event with the teach origin", func() {
		t, err := eng.Teach(ctx, engine.TeachRequest{
			Text:  "water boils at 100C",
			Scope: teaching.ScopeGlobal,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(publisher.Events).To(HaveLen(1))
		Expect(publisher.Events[0].Origin).To(Equal(eventstream.OriginTeach))
		Expect(publisher.Events[0].EventType).To(Equal(eventstream.EventTypeTeachingStored))
		Expect(publisher.Events[0].Teaching.ID).To(Equal(t.ID))
	})

	It("succeeds even when embedding fails", func() {
		embedder.FailOn = "unembeddable"

		_, err := eng.Teach(ctx, engine.TeachRequest{
			Text:  "unembeddable",
			Scope: teaching.ScopeGlobal,
		})
		Expect(err).NotTo(HaveOccurred())

		recent, err := driver.Recent(ctx, store.Filter{Visibility: store.VisibilityGlobal}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(recent).To(HaveLen(1))
		Expect(index.Points).To(BeEmpty())
	})

	It("succeeds even when the vector upsert fails", func() {
		index.FailUpsert = true

		_, err := eng.Teach(ctx, engine.TeachRequest{
			Text:  "fact",
			Scope: teaching.ScopeGlobal,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects invalid teachings before storing", func() {
		_, err := eng.Teach(ctx, engine.TeachRequest{
			Text:  "fact",
			Scope: teaching.ScopeSession,
		})

		var verr teaching.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
	})

	It("ensures the collection only once per process", func() {
		for _, text := range []string{"one", "two", "three"} {
			_, err := eng.Teach(ctx, engine.TeachRequest{Text: text, Scope: teaching.ScopeGlobal})
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(index.EnsureCalls).To(Equal(1))
	})

	It("ensures the collection exactly once under concurrent teaching", func() {
		var wg sync.WaitGroup
		for i := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()

				_, err := eng.Teach(ctx, engine.TeachRequest{
					Text:  fmt.Sprintf("concurrent fact %d", i),
					Scope: teaching.ScopeGlobal,
				})
				Expect(err).NotTo(HaveOccurred())
			}()
		}
		wg.Wait()

		Expect(index.Points).To(HaveLen(8))
		Expect(index.EnsureCalls).To(Equal(1))
	})
})

var _ = Describe("Health", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("reports ok with a healthy store and index", func() {
		eng, _, _, _, _ := newTestEngine()

		status := eng.Health(ctx)
		Expect(status.OK).To(BeTrue())
		Expect(status.Store).To(BeTrue())
		Expect(status.Index).To(BeTrue())
		Expect(status.Generative).To(BeFalse())
	})

	It("reports ok without a vector index", func() {
		eng, err := engine.New(engine.Opts{
			Store:    inmemory.NewDriver(),
			Embedder: testutils.NewMockEmbedder(),
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		status := eng.Health(ctx)
		Expect(status.OK).To(BeTrue())
		Expect(status.Index).To(BeFalse())
	})

	It("reports not ok when the index is unreachable", func() {
		index := testutils.NewMockVectorDriver()
		index.FailSearch = true

		eng, err := engine.New(engine.Opts{
			Store:    inmemory.NewDriver(),
			Embedder: testutils.NewMockEmbedder(),
			Index:    index,
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		status := eng.Health(ctx)
		Expect(status.OK).To(BeFalse())
		Expect(status.Store).To(BeTrue())
		Expect(status.Index).To(BeFalse())
	})

	It("reports generative capability only with a hosted embedder", func() {
		eng, err := engine.New(engine.Opts{
			Store:     inmemory.NewDriver(),
			Embedder:  testutils.NewMockEmbedder(),
			Completer: testutils.NewMockCompleter("hi"),
			Hosted:    false,
			Logger:    zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(eng.Health(ctx).Generative).To(BeFalse())
	})
})
