// Package discovery builds chunksource.ChunkSource instances from a
// loader's configured sources and announces them onto a pool's Q1 queue.
//
// This is the only place cliconfig.SourceConfig is interpreted: the pool
// core knows nothing about configuration shapes, only the ChunkSource
// interface.
package discovery

import (
	"context"
	"fmt"

	"github.com/justapithecus/chunkstream/chunksource"
	"github.com/justapithecus/chunkstream/cliconfig"
	"github.com/justapithecus/chunkstream/queue"
)

// Build constructs the ChunkSource for one SourceConfig entry.
func Build(ctx context.Context, cfg cliconfig.SourceConfig, format chunksource.FrameFormat) (chunksource.ChunkSource, error) {
	switch cfg.Type {
	case "debug":
		return chunksource.NewDebugChunkSource(cfg.DebugID, cfg.DebugMeanChunkCount, format), nil
	case "rawfile":
		if cfg.Path == "" {
			return nil, fmt.Errorf("discovery: rawfile source requires path")
		}
		return chunksource.NewRawFileChunkSource(cfg.Path, format), nil
	case "tar":
		if cfg.Path == "" {
			return nil, fmt.Errorf("discovery: tar source requires path")
		}
		return chunksource.OpenTarChunkSource(cfg.Path)
	case "s3tar":
		s3cfg := chunksource.S3Config{
			Bucket:       cfg.S3.Bucket,
			Key:          cfg.S3.Key,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
		}
		client, err := chunksource.NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		return chunksource.OpenS3TarChunkSource(ctx, client, s3cfg)
	default:
		return nil, fmt.Errorf("discovery: unknown source type %q", cfg.Type)
	}
}

// Announce builds every configured source and puts each onto producer as a
// file message, then emits the initial-scan-complete sentinel. Sources that
// fail to build are skipped with their error returned in errs once all
// sources have been attempted (a malformed entry doesn't block the rest).
func Announce(ctx context.Context, producer *queue.Producer[chunksource.Message], sources []cliconfig.SourceConfig, format chunksource.FrameFormat) []error {
	var errs []error
	for _, sc := range sources {
		src, err := Build(ctx, sc, format)
		if err != nil {
			errs = append(errs, fmt.Errorf("discovery: build source %+v: %w", sc, err))
			continue
		}
		if err := producer.Put(ctx, chunksource.NewFileMessage(src)); err != nil {
			errs = append(errs, fmt.Errorf("discovery: announce source %q: %w", src.SortKey(), err))
		}
	}
	if err := producer.Put(ctx, chunksource.InitialScanComplete); err != nil {
		errs = append(errs, fmt.Errorf("discovery: announce initial scan complete: %w", err))
	}
	return errs
}
