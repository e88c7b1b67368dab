// Package cliconfig loads the loader's YAML configuration file: pool
// sizing, chunk sources, and optional anchor telemetry. CLI flags always
// override config values.
package cliconfig

import (
	"fmt"
	"time"
)

// Config is a chunkstream-loader.yaml configuration file. All values are
// optional and act as defaults for CLI flags.
type Config struct {
	// PoolID identifies this pool instance for logging and metrics.
	// Generated (a uuid) if empty.
	PoolID string `yaml:"pool_id"`
	// Source labels where this pool's chunks come from, for logging and
	// metrics dimensions (e.g. "local-tar", "s3", "debug").
	Source string `yaml:"source"`
	// FrameFormat selects the frame layout: "v6" or "v7".
	FrameFormat string `yaml:"frame_format"`

	Pool      PoolConfig      `yaml:"pool"`
	Sources   []SourceConfig  `yaml:"sources"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// ControlSocket is the Unix domain socket path the anchor control
	// plane listens on. Empty disables the control plane.
	ControlSocket string `yaml:"control_socket"`
}

// PoolConfig mirrors pool.Config's tunables in YAML-friendly form.
type PoolConfig struct {
	ChunkPoolSize                   int     `yaml:"chunk_pool_size"`
	SourceIngestionThreads          int     `yaml:"source_ingestion_threads"`
	ChunkLoadingThreads             int     `yaml:"chunk_loading_threads"`
	HanseSamplingThreshold          uint32  `yaml:"hanse_sampling_threshold"`
	HanseSamplingGamma              float64 `yaml:"hanse_sampling_gamma"`
	OutputQueueCapacity             int     `yaml:"output_queue_capacity"`
	RandSeed                        uint64  `yaml:"rand_seed"`
	CountInitialScanUnconditionally bool    `yaml:"count_initial_scan_unconditionally"`
}

// SourceConfig describes one configured chunk source. Type selects which
// chunksource constructor builds it; the remaining fields are interpreted
// according to Type.
type SourceConfig struct {
	// Type is one of "debug", "rawfile", "tar", "s3tar".
	Type string `yaml:"type"`

	// Path is the local file path for "rawfile" and "tar" sources.
	Path string `yaml:"path,omitempty"`

	// DebugID and DebugMeanChunkCount configure a "debug" source.
	DebugID             uint64  `yaml:"debug_id,omitempty"`
	DebugMeanChunkCount float64 `yaml:"debug_mean_chunk_count,omitempty"`

	// S3 configures an "s3tar" source.
	S3 S3SourceConfig `yaml:"s3,omitempty"`
}

// S3SourceConfig configures an S3-backed tar chunk source.
type S3SourceConfig struct {
	Bucket       string `yaml:"bucket"`
	Key          string `yaml:"key"`
	Region       string `yaml:"region,omitempty"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	UsePathStyle bool   `yaml:"use_path_style,omitempty"`
}

// TelemetryConfig configures the optional anchor watermark publisher.
type TelemetryConfig struct {
	// Type is "", "redis", or "webhook". Empty disables telemetry.
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url,omitempty"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
