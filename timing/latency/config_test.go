package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/VIKASNARASIMHA1/Spectre/timing/cache"
	"github.com/VIKASNARASIMHA1/Spectre/timing/latency"
	"github.com/VIKASNARASIMHA1/Spectre/timing/pipeline"
)

var _ = Describe("TimingConfig", func() {
	It("should validate the defaults", func() {
		Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
	})

	It("should convert cache settings", func() {
		config, err := latency.DefaultTimingConfig().L1.ToCacheConfig()
		Expect(err).ToNot(HaveOccurred())
		Expect(config.Topology).To(Equal(cache.SetAssociative))
		Expect(config.Size).To(Equal(32 * 1024))
		Expect(config.NumSets()).To(Equal(64))
	})

	It("should convert predictor settings", func() {
		config, err := latency.DefaultTimingConfig().Predictor.ToPredictorConfig()
		Expect(err).ToNot(HaveOccurred())
		Expect(config.Policy).To(Equal(pipeline.Bimodal))
		Expect(config.PHTSize).To(Equal(uint32(4096)))
	})

	It("should reject an unknown predictor policy", func() {
		config := latency.DefaultTimingConfig()
		config.Predictor.Policy = "oracle"
		Expect(config.Validate()).ToNot(Succeed())
	})

	It("should reject an unknown cache topology", func() {
		config := latency.DefaultTimingConfig()
		config.L1.Topology = "skewed"
		Expect(config.Validate()).ToNot(Succeed())
	})

	It("should reject inconsistent cache geometry", func() {
		config := latency.DefaultTimingConfig()
		config.L2.Size = 1000
		Expect(config.Validate()).ToNot(Succeed())
	})

	Describe("JSON round-trip", func() {
		It("should save and reload a configuration", func() {
			path := filepath.Join(GinkgoT().TempDir(), "timing.json")

			config := latency.DefaultTimingConfig()
			config.FlushPenalty = 5
			config.Predictor.Policy = "gshare"
			Expect(config.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded).To(Equal(config))
		})

		It("should fill absent fields with defaults", func() {
			path := filepath.Join(GinkgoT().TempDir(), "partial.json")
			Expect(os.WriteFile(path,
				[]byte(`{"flush_penalty": 7}`), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(loaded.FlushPenalty).To(Equal(uint64(7)))
			Expect(loaded.Predictor.Policy).To(Equal("bimodal"))
			Expect(loaded.L1.Size).To(Equal(32 * 1024))
		})

		It("should report a missing file", func() {
			_, err := latency.LoadConfig("/nonexistent/timing.json")
			Expect(err).To(HaveOccurred())
		})
	})

	It("should clone without sharing state", func() {
		config := latency.DefaultTimingConfig()
		clone := config.Clone()
		clone.FlushPenalty = 99
		Expect(config.FlushPenalty).To(Equal(uint64(3)))
	})
})
