package hashed_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/embeddings/hashed"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

var _ = Describe("Embedder", func() {
	var (
		embedder *hashed.Embedder
		ctx      context.Context
	)

	BeforeEach(func() {
		embedder = hashed.NewEmbedder(0)
		ctx = context.Background()
	})

	It("falls back to the default dimensions for zero", func() {
		Expect(embedder.Dimensions()).To(Equal(uint(hashed.DefaultDimensions)))
	})

	It("honors an explicit dimension count", func() {
		small := hashed.NewEmbedder(64)
		vec, err := small.Embed(ctx, "hello world")
		Expect(err).NotTo(HaveOccurred())
		Expect(vec).To(HaveLen(64))
	})

	It("is deterministic for identical text", func() {
		first, err := embedder.Embed(ctx, "the capital of France is Paris")
		Expect(err).NotTo(HaveOccurred())

		second, err := embedder.Embed(ctx, "the capital of France is Paris")
		Expect(err).NotTo(HaveOccurred())

		Expect(first).To(Equal(second))
	})

	It("produces unit-length vectors for non-empty text", func() {
		vec, err := embedder.Embed(ctx, "water boils at 100C at sea level")
		Expect(err).NotTo(HaveOccurred())

		Expect(math.Sqrt(dot(vec, vec))).To(BeNumerically("~", 1.0, 1e-5))
	})

	It("embeds empty text to the zero vector", func() {
		vec, err := embedder.Embed(ctx, "")
		Expect(err).NotTo(HaveOccurred())

		Expect(dot(vec, vec)).To(BeZero())
	})

	It("scores related texts above unrelated ones", func() {
		query, err := embedder.Embed(ctx, "capital of france")
		Expect(err).NotTo(HaveOccurred())

		related, err := embedder.Embed(ctx, "the capital of france is paris")
		Expect(err).NotTo(HaveOccurred())

		unrelated, err := embedder.Embed(ctx, "kubernetes pods restart on failure")
		Expect(err).NotTo(HaveOccurred())

		Expect(dot(query, related)).To(BeNumerically(">", dot(query, unrelated)))
	})
})
