package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/dotdir"
)

var _ = Describe("Session state", func() {
	var (
		manager *dotdir.Manager
		tmpDir  string
	)

	BeforeEach(func() {
		manager = dotdir.NewManager()

		var err error
		tmpDir, err = os.MkdirTemp("", "mentor-dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadSessionState", func() {
		It("returns nil when no session exists", func() {
			state, err := manager.LoadSessionState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("fails on a corrupt session file", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("{broken"), 0o600)).To(Succeed())

			_, err := manager.LoadSessionState(tmpDir)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("EnsureSession", func() {
		It("mints a session when none exists", func() {
			state, err := manager.EnsureSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.SessionID).NotTo(BeEmpty())
			Expect(state.StartedAt).NotTo(BeZero())
		})

		It("returns the same session on subsequent calls", func() {
			first, err := manager.EnsureSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			second, err := manager.EnsureSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(second.SessionID).To(Equal(first.SessionID))
		})

		It("persists the session to disk", func() {
			state, err := manager.EnsureSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := manager.LoadSessionState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).NotTo(BeNil())
			Expect(loaded.SessionID).To(Equal(state.SessionID))
		})
	})

	Describe("ClearSession", func() {
		It("removes the session so the next ensure mints a new one", func() {
			first, err := manager.EnsureSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(manager.ClearSession(tmpDir)).To(Succeed())

			second, err := manager.EnsureSession(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.SessionID).NotTo(Equal(first.SessionID))
		})

		It("succeeds when no session exists", func() {
			Expect(manager.ClearSession(tmpDir)).To(Succeed())
		})
	})
})
