package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/config"
)

var _ = Describe("Configer", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "mentor-config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns defaults when no config file exists", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.Provider).To(Equal("inmemory"))
			Expect(cfg.API.Listen).To(Equal(":8080"))
			Expect(cfg.Embedding.Provider).To(Equal("hashed"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(256)))
		})

		It("merges file values over defaults", func() {
			content := []byte("[storage]\nprovider = \"sqlite\"\ntarget = \"mentor.db\"\n")
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), content, 0o600)).To(Succeed())

			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Storage.Provider).To(Equal("sqlite"))
			Expect(cfg.Storage.Target).To(Equal("mentor.db"))
			Expect(cfg.API.Listen).To(Equal(":8080"))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		It("round-trips a string value through the file", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("embedding.model", "nomic-embed-text")).To(Succeed())

			value, err := cfger.GetConfigValue("embedding.model")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("nomic-embed-text"))
		})

		It("round-trips the broker list as a comma-joined string", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("eventstream.brokers", "kafka-1:9092, kafka-2:9092")).To(Succeed())

			value, err := cfger.GetConfigValue("eventstream.brokers")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("kafka-1:9092,kafka-2:9092"))
		})

		It("parses dimensions as a uint", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("embedding.dimensions", "768")).To(Succeed())

			value, err := cfger.GetConfigValue("embedding.dimensions")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("768"))
		})

		It("rejects non-numeric dimensions", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("embedding.dimensions", "lots")).To(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfger.SetConfigValue("nope.nothing", "x")).To(HaveOccurred())

			_, err = cfger.GetConfigValue("nope.nothing")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ParseConfigTOML", func() {
		It("rejects unsupported versions", func() {
			_, err := config.ParseConfigTOML([]byte("version = 99\n"))
			Expect(err).To(MatchError(ContainSubstring("unsupported config version")))
		})

		It("accepts an omitted version", func() {
			cfg, err := config.ParseConfigTOML([]byte("[api]\nlisten = \":9999\"\n"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.API.Listen).To(Equal(":9999"))
		})

		It("rejects malformed TOML", func() {
			_, err := config.ParseConfigTOML([]byte("[api\nlisten"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ValidConfigKeys", func() {
		It("covers every key the registry knows", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(ContainElements(
				"storage.provider",
				"api.listen",
				"client.api_target",
				"vector_store.provider",
				"embedding.dimensions",
				"generative.model",
				"eventstream.brokers",
			))

			for _, key := range keys {
				Expect(config.IsValidConfigKey(key)).To(BeTrue(), "key %q", key)
			}
		})

		It("rejects keys outside the registry", func() {
			Expect(config.IsValidConfigKey("proxy.provider")).To(BeFalse())
		})
	})
})
