package pool

import "errors"

// ErrStartupNoChunks is returned by Start when the initial scan collects
// zero total chunks across every announced source: there is nothing to
// ever emit, so the pool refuses to start rather than idle forever.
var ErrStartupNoChunks = errors.New("pool: zero chunks indexed at startup")
