package engine_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/engine"
	"github.com/papercomputeco/mentor/pkg/store/inmemory"
	"github.com/papercomputeco/mentor/pkg/teaching"
	testutils "github.com/papercomputeco/mentor/pkg/utils/test"
)

var _ = Describe("Reindex", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("fails fast without a vector index", func() {
		eng, err := engine.New(engine.Opts{
			Store:    inmemory.NewDriver(),
			Embedder: testutils.NewMockEmbedder(),
			Logger:   zap.NewNop(),
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = eng.Reindex(ctx)
		Expect(err).To(MatchError(engine.ErrNoEmbeddingCapability))
	})

	It("upserts every stored teaching", func() {
		eng, _, _, index, _ := newTestEngine()

		for _, text := range []string{"one", "two", "three"} {
			_, err := eng.Teach(ctx, engine.TeachRequest{Text: text, Scope: teaching.ScopeGlobal})
			Expect(err).NotTo(HaveOccurred())
		}

		result, err := eng.Reindex(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Upserted).To(Equal(3))
		Expect(result.Failed).To(BeZero())
		Expect(index.Points).To(HaveLen(3))
	})

	It("is idempotent", func() {
		eng, _, _, index, _ := newTestEngine()

		_, err := eng.Teach(ctx, engine.TeachRequest{Text: "fact", Scope: teaching.ScopeGlobal})
		Expect(err).NotTo(HaveOccurred())

		first, err := eng.Reindex(ctx)
		Expect(err).NotTo(HaveOccurred())

		second, err := eng.Reindex(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(second.Upserted).To(Equal(first.Upserted))
		Expect(index.Points).To(HaveLen(1))
	})

	It("counts per-teaching embed failures without aborting", func() {
		eng, _, embedder, _, _ := newTestEngine()

		_, err := eng.Teach(ctx, engine.TeachRequest{Text: "good fact", Scope: teaching.ScopeGlobal})
		Expect(err).NotTo(HaveOccurred())
		_, err = eng.Teach(ctx, engine.TeachRequest{Text: "bad fact", Scope: teaching.ScopeGlobal})
		Expect(err).NotTo(HaveOccurred())

		embedder.FailOn = "bad fact"

		result, err := eng.Reindex(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Upserted).To(Equal(1))
		Expect(result.Failed).To(Equal(1))
	})

	It("counts per-teaching upsert failures without aborting", func() {
		eng, _, _, index, _ := newTestEngine()

		_, err := eng.Teach(ctx, engine.TeachRequest{Text: "fact", Scope: teaching.ScopeGlobal})
		Expect(err).NotTo(HaveOccurred())

		index.FailUpsert = true

		result, err := eng.Reindex(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Upserted).To(BeZero())
		Expect(result.Failed).To(Equal(1))
	})

	It("returns zero counts for an empty store", func() {
		eng, _, _, _, _ := newTestEngine()

		result, err := eng.Reindex(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Upserted).To(BeZero())
		Expect(result.Failed).To(BeZero())
	})
})
