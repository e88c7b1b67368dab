package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `pool_id: pool-001
source: local-tar
frame_format: v7

pool:
  chunk_pool_size: 5000
  source_ingestion_threads: 2
  chunk_loading_threads: 8
  hanse_sampling_threshold: 4096
  hanse_sampling_gamma: 1.5
  output_queue_capacity: 512
  rand_seed: 42

sources:
  - type: tar
    path: /data/shard-001.tar
  - type: s3tar
    s3:
      bucket: my-bucket
      key: shards/shard-002.tar
      region: us-east-1
      use_path_style: true

telemetry:
  type: webhook
  url: https://hooks.example.com/anchor
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3

control_socket: /var/run/chunkstream/pool-001.sock
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "pool_id", cfg.PoolID, "pool-001")
	assertEqual(t, "source", cfg.Source, "local-tar")
	assertEqual(t, "frame_format", cfg.FrameFormat, "v7")

	if cfg.Pool.ChunkPoolSize != 5000 {
		t.Errorf("expected chunk_pool_size=5000, got %d", cfg.Pool.ChunkPoolSize)
	}
	if cfg.Pool.HanseSamplingThreshold != 4096 {
		t.Errorf("expected hanse_sampling_threshold=4096, got %d", cfg.Pool.HanseSamplingThreshold)
	}
	if cfg.Pool.HanseSamplingGamma != 1.5 {
		t.Errorf("expected hanse_sampling_gamma=1.5, got %v", cfg.Pool.HanseSamplingGamma)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}
	assertEqual(t, "sources[0].type", cfg.Sources[0].Type, "tar")
	assertEqual(t, "sources[0].path", cfg.Sources[0].Path, "/data/shard-001.tar")
	assertEqual(t, "sources[1].s3.bucket", cfg.Sources[1].S3.Bucket, "my-bucket")
	if !cfg.Sources[1].S3.UsePathStyle {
		t.Error("expected sources[1].s3.use_path_style=true")
	}

	assertEqual(t, "telemetry.type", cfg.Telemetry.Type, "webhook")
	assertEqual(t, "telemetry.url", cfg.Telemetry.URL, "https://hooks.example.com/anchor")
	if cfg.Telemetry.Timeout.Duration != 10*time.Second {
		t.Errorf("expected telemetry.timeout=10s, got %v", cfg.Telemetry.Timeout.Duration)
	}
	if cfg.Telemetry.Retries == nil || *cfg.Telemetry.Retries != 3 {
		t.Errorf("expected telemetry.retries=3")
	}
	if cfg.Telemetry.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("expected Authorization header")
	}

	assertEqual(t, "control_socket", cfg.ControlSocket, "/var/run/chunkstream/pool-001.sock")
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PoolID != "" {
		t.Errorf("expected empty pool_id, got %q", cfg.PoolID)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/chunkstream-loader.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_SOURCE", "expanded-source")

	yaml := `source: ${TEST_SOURCE}`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "source", cfg.Source, "expanded-source")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `pool_id: pool-001
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `pool:
  chunk_pool_size: 1000
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	yaml := "telemetry:\n  timeout: 30s"
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Telemetry.Timeout.Duration != 30*time.Second {
		t.Errorf("expected 30s, got %v", cfg.Telemetry.Timeout.Duration)
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "chunkstream-loader.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
