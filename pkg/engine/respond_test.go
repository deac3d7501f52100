package engine_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/pkg/engine"
	"github.com/papercomputeco/mentor/pkg/eventstream"
	"github.com/papercomputeco/mentor/pkg/store"
	"github.com/papercomputeco/mentor/pkg/store/inmemory"
	"github.com/papercomputeco/mentor/pkg/teaching"
	testutils "github.com/papercomputeco/mentor/pkg/utils/test"
	"github.com/papercomputeco/mentor/pkg/vector"
)

func vectorHit(id, text string, score float32) vector.Result {
	return vector.Result{
		Point: vector.Point{
			ID: id,
			Payload: vector.Payload{
				Text:      text,
				Scope:     string(teaching.ScopeGlobal),
				CreatedAt: time.Now().UTC(),
			},
		},
		Score: score,
	}
}

var _ = Describe("Respond", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("rejects empty input", func() {
		eng, _, _, _, _ := newTestEngine()

		_, err := eng.Respond(ctx, engine.RespondRequest{Input: "   "})

		var verr teaching.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
	})

	It("rejects whitespace-only input without touching the store", func() {
		eng, _, _, _, _ := newTestEngine()

		_, err := eng.Respond(ctx, engine.RespondRequest{Input: "\n\t "})
		Expect(err).To(HaveOccurred())
	})

	Describe("the confidence gate", func() {
		It("returns a high-confidence vector hit verbatim", func() {
			eng, _, _, index, _ := newTestEngine()
			index.Results = []vector.Result{
				vectorHit("t1", "The capital of France is Paris.", 0.92),
				vectorHit("t2", "France is in Europe.", 0.55),
			}

			result, err := eng.Respond(ctx, engine.RespondRequest{Input: "capital of france"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal("The capital of France is Paris."))
			Expect(result.Sources).To(HaveLen(2))
			Expect(result.Sources[0].Score).To(BeNumerically(">=", engine.HighConfidence))
		})

		It("never escalates when the gate passes", func() {
			completer := testutils.NewMockCompleter("generated")
			index := testutils.NewMockVectorDriver()
			index.Results = []vector.Result{
				vectorHit("t1", "The capital of France is Paris.", 0.92),
			}

			eng, err := engine.New(engine.Opts{
				Store:     inmemory.NewDriver(),
				Embedder:  testutils.NewMockEmbedder(),
				Hosted:    true,
				Index:     index,
				Completer: completer,
				Logger:    zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			result, err := eng.Respond(ctx, engine.RespondRequest{Input: "capital of france"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal("The capital of France is Paris."))
			Expect(completer.Calls).To(BeZero())
		})

		It("answers verbatim from the lexical tier when overlap is high", func() {
			eng, err := engine.New(engine.Opts{
				Store:    inmemory.NewDriver(),
				Embedder: testutils.NewMockEmbedder(),
				Logger:   zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = eng.Teach(ctx, engine.TeachRequest{
				Text:  "The capital of France is Paris.",
				Scope: teaching.ScopeGlobal,
			})
			Expect(err).NotTo(HaveOccurred())

			result, err := eng.Respond(ctx, engine.RespondRequest{
				Input: "What is the capital of France?",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal("The capital of France is Paris."))
		})
	})

	Describe("degradation", func() {
		It("falls back to lexical when vector search fails", func() {
			eng, driver, _, index, _ := newTestEngine()
			index.FailSearch = true

			t, err := teaching.New("The capital of France is Paris.", nil, teaching.ScopeGlobal, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Insert(ctx, t)).To(Succeed())

			result, err := eng.Respond(ctx, engine.RespondRequest{
				Input: "What is the capital of France?",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal("The capital of France is Paris."))
		})

		It("falls back to lexical when the vector tier yields nothing visible", func() {
			eng, driver, _, index, _ := newTestEngine()
			index.Results = nil

			t, err := teaching.New("The capital of France is Paris.", nil, teaching.ScopeGlobal, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Insert(ctx, t)).To(Succeed())

			result, err := eng.Respond(ctx, engine.RespondRequest{
				Input: "What is the capital of France?",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal("The capital of France is Paris."))
		})

		It("returns the placeholder with empty sources on an empty store", func() {
			eng, _, _, _, _ := newTestEngine()

			result, err := eng.Respond(ctx, engine.RespondRequest{Input: "anything at all"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal(engine.PlaceholderReply))
			Expect(result.Sources).To(BeEmpty())
		})

		It("degrades to lexical when query embedding fails", func() {
			eng, err := engine.New(engine.Opts{
				Store:    inmemory.NewDriver(),
				Embedder: &testutils.MockEmbedder{FailAll: true},
				Index:    testutils.NewMockVectorDriver(),
				Logger:   zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			// Embedding fails, vector tier degrades, lexical succeeds on
			// the intact store: still a valid answer path.
			result, respondErr := eng.Respond(ctx, engine.RespondRequest{Input: "anything"})
			Expect(respondErr).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal(engine.PlaceholderReply))
		})
	})

	Describe("session visibility", func() {
		It("hides other sessions' teachings from lexical retrieval", func() {
			eng, _, _, _, _ := newTestEngine()

			_, err := eng.Teach(ctx, engine.TeachRequest{
				Text:      "the deploy password is swordfish",
				Scope:     teaching.ScopeSession,
				SessionID: "sess-a",
			})
			Expect(err).NotTo(HaveOccurred())

			result, err := eng.Respond(ctx, engine.RespondRequest{
				Input:     "what is the deploy password",
				SessionID: "sess-b",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal(engine.PlaceholderReply))
			Expect(result.Sources).To(BeEmpty())
		})

		It("shows a session its own teachings", func() {
			eng, _, _, _, _ := newTestEngine()

			_, err := eng.Teach(ctx, engine.TeachRequest{
				Text:      "the deploy password is swordfish",
				Scope:     teaching.ScopeSession,
				SessionID: "sess-a",
			})
			Expect(err).NotTo(HaveOccurred())

			result, err := eng.Respond(ctx, engine.RespondRequest{
				Input:     "what is the deploy password",
				SessionID: "sess-a",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal("the deploy password is swordfish"))
		})

		It("filters session-scoped vector hits by session id", func() {
			eng, _, _, index, _ := newTestEngine()

			hit := vectorHit("t1", "session secret", 0.95)
			hit.Point.Payload.Scope = string(teaching.ScopeSession)
			hit.Point.Payload.SessionID = "sess-a"
			index.Results = []vector.Result{hit}

			result, err := eng.Respond(ctx, engine.RespondRequest{
				Input:     "what is the secret value here",
				SessionID: "sess-b",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal(engine.PlaceholderReply))
		})
	})

	Describe("generative escalation", func() {
		var (
			eng       *engine.Engine
			driver    *inmemory.Driver
			completer *testutils.MockCompleter
			publisher *testutils.MockPublisher
		)

		BeforeEach(func() {
			driver = inmemory.NewDriver()
			completer = testutils.NewMockCompleter("Paris is the capital and largest city of France.")
			publisher = testutils.NewMockPublisher()

			var err error
			eng, err = engine.New(engine.Opts{
				Store:     driver,
				Embedder:  testutils.NewMockEmbedder(),
				Hosted:    true,
				Completer: completer,
				Publisher: publisher,
				Logger:    zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("escalates below the confidence gate and returns the generated reply", func() {
			result, err := eng.Respond(ctx, engine.RespondRequest{Input: "tell me about paris"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal("Paris is the capital and largest city of France."))
			Expect(completer.Calls).To(Equal(1))
		})

		It("writes the generated answer back as a global ai_reply teaching", func() {
			_, err := eng.Respond(ctx, engine.RespondRequest{Input: "tell me about paris"})
			Expect(err).NotTo(HaveOccurred())

			recent, err := driver.Recent(ctx, store.Filter{Visibility: store.VisibilityGlobal}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(HaveLen(1))
			Expect(recent[0].Text).To(Equal("Paris is the capital and largest city of France."))
			Expect(recent[0].Tags).To(ContainElement(teaching.TagAIReply))
			Expect(recent[0].Scope).To(Equal(teaching.ScopeGlobal))
			Expect(recent[0].SessionID).To(BeEmpty())
		})

		It("publishes the write-back with the writeback origin", func() {
			_, err := eng.Respond(ctx, engine.RespondRequest{Input: "tell me about paris"})
			Expect(err).NotTo(HaveOccurred())

			Expect(publisher.Events).To(HaveLen(1))
			Expect(publisher.Events[0].Origin).To(Equal(eventstream.OriginWriteBack))
		})

		It("returns the placeholder when generation fails", func() {
			completer.Fail = true

			result, err := eng.Respond(ctx, engine.RespondRequest{Input: "tell me about paris"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal(engine.PlaceholderReply))

			recent, err := driver.Recent(ctx, store.Filter{Visibility: store.VisibilityGlobal}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(BeEmpty())
		})

		It("passes the gathered candidates to the completer", func() {
			_, err := eng.Teach(ctx, engine.TeachRequest{
				Text:  "Paris hosts the Louvre museum.",
				Scope: teaching.ScopeGlobal,
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = eng.Respond(ctx, engine.RespondRequest{Input: "what museum is in paris"})
			Expect(err).NotTo(HaveOccurred())

			Expect(completer.LastQuery).To(Equal("what museum is in paris"))
			Expect(completer.LastTeachings).To(HaveLen(1))
			Expect(completer.LastTeachings[0].Text).To(Equal("Paris hosts the Louvre museum."))
		})

		It("never escalates with a local embedder", func() {
			localEng, err := engine.New(engine.Opts{
				Store:     inmemory.NewDriver(),
				Embedder:  testutils.NewMockEmbedder(),
				Hosted:    false,
				Completer: completer,
				Logger:    zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())

			result, err := localEng.Respond(ctx, engine.RespondRequest{Input: "tell me about paris"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Reply).To(Equal(engine.PlaceholderReply))
			Expect(completer.Calls).To(BeZero())
		})
	})

	Describe("top_k handling", func() {
		It("caps sources at the requested top_k", func() {
			eng, _, _, _, _ := newTestEngine()

			for _, text := range []string{
				"paris fact one", "paris fact two", "paris fact three", "paris fact four",
			} {
				_, err := eng.Teach(ctx, engine.TeachRequest{Text: text, Scope: teaching.ScopeGlobal})
				Expect(err).NotTo(HaveOccurred())
			}

			result, err := eng.Respond(ctx, engine.RespondRequest{
				Input: "facts about paris",
				TopK:  2,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(len(result.Sources)).To(BeNumerically("<=", 2))
		})

		It("orders sources by score descending", func() {
			eng, _, _, index, _ := newTestEngine()
			index.Results = []vector.Result{
				vectorHit("low", "weak match", 0.20),
				vectorHit("high", "strong match", 0.60),
				vectorHit("mid", "ok match", 0.40),
			}

			result, err := eng.Respond(ctx, engine.RespondRequest{Input: "some query text"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Sources).To(HaveLen(3))
			Expect(result.Sources[0].ID).To(Equal("high"))
			Expect(result.Sources[1].ID).To(Equal("mid"))
			Expect(result.Sources[2].ID).To(Equal("low"))
		})
	})
})
