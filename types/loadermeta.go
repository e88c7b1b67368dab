//nolint:revive // types is a common Go package naming convention
package types

// LoaderMeta identifies a single loader pipeline instance for logging and
// metrics dimensions, stamped onto every log line and metric snapshot via
// log.NewLogger / metrics.NewCollector.
type LoaderMeta struct {
	// PoolID is a process-unique identifier for this pool instance
	// (typically a uuid, see cmd/chunkstream-loader).
	PoolID string
	// Source is a free-form label identifying where chunk sources come
	// from (e.g. "local-tar", "s3", "debug").
	Source string
}

// Validate reports whether the metadata is well-formed enough to start a
// pool.
func (m *LoaderMeta) Validate() error {
	if m == nil || m.PoolID == "" {
		return errLoaderMetaMissingPoolID
	}
	return nil
}

var errLoaderMetaMissingPoolID = poolIDError{}

type poolIDError struct{}

func (poolIDError) Error() string { return "loader metadata requires a non-empty PoolID" }
