package mcp_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/mentor/api/mcp"
	"github.com/papercomputeco/mentor/pkg/engine"
	"github.com/papercomputeco/mentor/pkg/store/inmemory"
	testutils "github.com/papercomputeco/mentor/pkg/utils/test"
)

func newTestEngine() *engine.Engine {
	eng, err := engine.New(engine.Opts{
		Store:    inmemory.NewDriver(),
		Embedder: testutils.NewMockEmbedder(),
		Logger:   zap.NewNop(),
	})
	Expect(err).NotTo(HaveOccurred())
	return eng
}

var _ = Describe("MCP Server", func() {
	Describe("NewServer", func() {
		It("creates a server with valid config", func() {
			server, err := mcp.NewServer(mcp.Config{
				Engine: newTestEngine(),
				Logger: zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(server).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			server, err := mcp.NewServer(mcp.Config{
				Engine: newTestEngine(),
				Logger: zap.NewNop(),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})

		It("returns an error when the engine is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Logger: zap.NewNop(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("engine is required"))
		})

		It("returns an error when the logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{
				Engine: newTestEngine(),
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("creates a toolless server in noop mode", func() {
			server, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(server).NotTo(BeNil())
		})
	})
})
