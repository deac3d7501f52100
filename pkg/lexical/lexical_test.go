package lexical_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/lexical"
)

var _ = Describe("Tokenize", func() {
	It("lowercases and splits on punctuation", func() {
		Expect(lexical.Tokenize("What is the Capital of France?")).To(Equal(
			[]string{"what", "is", "the", "capital", "of", "france"},
		))
	})

	It("keeps digits as token characters", func() {
		Expect(lexical.Tokenize("boils at 100C")).To(Equal([]string{"boils", "at", "100c"}))
	})

	It("returns nothing for pure punctuation", func() {
		Expect(lexical.Tokenize("?!... --- ,,,")).To(BeEmpty())
	})
})

var _ = Describe("Score", func() {
	It("returns 1 on full token overlap", func() {
		Expect(lexical.Score("capital of france", "The capital of France is Paris.")).To(
			BeNumerically("==", 1.0),
		)
	})

	It("returns 0 when nothing overlaps", func() {
		Expect(lexical.Score("capital of france", "water boils at 100C")).To(BeZero())
	})

	It("returns 0 for an empty query", func() {
		Expect(lexical.Score("", "anything at all")).To(BeZero())
	})

	It("scores partial overlap as a fraction of query tokens", func() {
		// 2 of 4 distinct query tokens present.
		score := lexical.Score("capital city of germany", "the capital of france")
		Expect(score).To(BeNumerically("~", 0.5, 0.001))
	})

	It("floors the denominator for short queries", func() {
		// One token fully matched, but the denominator floor keeps the
		// score below full confidence.
		score := lexical.Score("france", "France is in Europe")
		Expect(score).To(BeNumerically("~", 1.0/3.0, 0.001))
	})

	It("ignores repeated query tokens", func() {
		Expect(lexical.Score("paris paris paris", "Paris")).To(
			BeNumerically("~", 1.0/3.0, 0.001),
		)
	})
})
