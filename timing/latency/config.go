// Package latency holds the timing configuration shared by the execution
// engines: cache geometry and latencies, branch predictor settings, and
// flush penalties, loadable from JSON.
package latency

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/VIKASNARASIMHA1/Spectre/timing/cache"
	"github.com/VIKASNARASIMHA1/Spectre/timing/ooo"
	"github.com/VIKASNARASIMHA1/Spectre/timing/pipeline"
)

// CacheSettings describes one cache level.
type CacheSettings struct {
	// Topology is "direct", "set-assoc", or "fully-assoc".
	Topology string `json:"topology"`

	// Size is the total capacity in bytes.
	Size int `json:"size"`

	// LineSize is the cache line size in bytes.
	LineSize int `json:"line_size"`

	// Associativity is the number of ways per set.
	Associativity int `json:"associativity"`

	// HitLatency is the cost of a hit in cycles.
	HitLatency uint64 `json:"hit_latency"`

	// MissPenalty is the cost of a miss in cycles.
	MissPenalty uint64 `json:"miss_penalty"`
}

// ToCacheConfig converts the settings to a cache configuration.
func (s CacheSettings) ToCacheConfig() (cache.Config, error) {
	var topology cache.Topology
	switch s.Topology {
	case "direct":
		topology = cache.DirectMapped
	case "set-assoc":
		topology = cache.SetAssociative
	case "fully-assoc":
		topology = cache.FullyAssociative
	default:
		return cache.Config{}, fmt.Errorf("unknown cache topology %q", s.Topology)
	}

	return cache.Config{
		Topology:      topology,
		Size:          s.Size,
		LineSize:      s.LineSize,
		Associativity: s.Associativity,
		HitLatency:    s.HitLatency,
		MissPenalty:   s.MissPenalty,
	}, nil
}

// PredictorSettings describes the branch predictor.
type PredictorSettings struct {
	// Policy is "always-taken", "always-not-taken", "bimodal", or "gshare".
	Policy string `json:"policy"`

	// PHTSize is the number of pattern history table entries.
	PHTSize uint32 `json:"pht_size"`

	// BHRBits is the number of global history bits (gshare only).
	BHRBits uint32 `json:"bhr_bits"`
}

// ToPredictorConfig converts the settings to a predictor configuration.
func (s PredictorSettings) ToPredictorConfig() (pipeline.PredictorConfig, error) {
	var policy pipeline.PredictorPolicy
	switch s.Policy {
	case "always-taken":
		policy = pipeline.AlwaysTaken
	case "always-not-taken":
		policy = pipeline.AlwaysNotTaken
	case "bimodal":
		policy = pipeline.Bimodal
	case "gshare":
		policy = pipeline.GShare
	default:
		return pipeline.PredictorConfig{}, fmt.Errorf(
			"unknown predictor policy %q", s.Policy)
	}

	return pipeline.PredictorConfig{
		Policy:  policy,
		PHTSize: s.PHTSize,
		BHRBits: s.BHRBits,
	}, nil
}

// EngineSettings describes the out-of-order engine dimensions.
type EngineSettings struct {
	// NumStations is the number of reservation stations.
	NumStations int `json:"num_stations"`

	// ROBSize is the number of reorder buffer entries.
	ROBSize int `json:"rob_size"`

	// IssueWidth is how many instructions the front end may issue per
	// cycle.
	IssueWidth int `json:"issue_width"`
}

// ToEngineConfig converts the settings to an engine configuration.
func (s EngineSettings) ToEngineConfig() ooo.Config {
	return ooo.Config{
		NumStations: s.NumStations,
		ROBSize:     s.ROBSize,
	}
}

// TimingConfig is the full timing model configuration.
type TimingConfig struct {
	// FlushPenalty is the bubble count charged per branch misprediction.
	// Default: 3 cycles.
	FlushPenalty uint64 `json:"flush_penalty"`

	// Predictor configures the branch predictor.
	Predictor PredictorSettings `json:"predictor"`

	// L1 configures the level-1 cache.
	L1 CacheSettings `json:"l1"`

	// L2 configures the level-2 cache.
	L2 CacheSettings `json:"l2"`

	// Engine configures the out-of-order engine.
	Engine EngineSettings `json:"engine"`
}

// DefaultTimingConfig returns the default timing model: a bimodal
// predictor, 32KB 8-way L1, 256KB 16-way L2, and a 3-cycle flush.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		FlushPenalty: 3,
		Predictor: PredictorSettings{
			Policy:  "bimodal",
			PHTSize: 4096,
			BHRBits: 12,
		},
		L1: CacheSettings{
			Topology:      "set-assoc",
			Size:          32 * 1024,
			LineSize:      64,
			Associativity: 8,
			HitLatency:    1,
			MissPenalty:   10,
		},
		L2: CacheSettings{
			Topology:      "set-assoc",
			Size:          256 * 1024,
			LineSize:      64,
			Associativity: 16,
			HitLatency:    10,
			MissPenalty:   50,
		},
		Engine: EngineSettings{
			NumStations: 8,
			ROBSize:     16,
			IssueWidth:  4,
		},
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields absent from
// the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks the configuration for internal consistency.
func (c *TimingConfig) Validate() error {
	if c.FlushPenalty == 0 {
		return fmt.Errorf("flush_penalty must be > 0")
	}
	if _, err := c.Predictor.ToPredictorConfig(); err != nil {
		return err
	}

	l1, err := c.L1.ToCacheConfig()
	if err != nil {
		return fmt.Errorf("l1: %w", err)
	}
	if _, err := cache.New(l1); err != nil {
		return fmt.Errorf("l1: %w", err)
	}

	l2, err := c.L2.ToCacheConfig()
	if err != nil {
		return fmt.Errorf("l2: %w", err)
	}
	if _, err := cache.New(l2); err != nil {
		return fmt.Errorf("l2: %w", err)
	}

	if c.Engine.NumStations <= 0 {
		return fmt.Errorf("num_stations must be > 0")
	}
	if c.Engine.ROBSize <= 0 {
		return fmt.Errorf("rob_size must be > 0")
	}
	if c.Engine.IssueWidth <= 0 {
		return fmt.Errorf("issue_width must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
