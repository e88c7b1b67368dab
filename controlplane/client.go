package controlplane

import (
	"context"
	"fmt"
	"net"

	"github.com/justapithecus/chunkstream/types"
)

// Client issues one-shot requests against a running pool's control-plane
// socket. Each call dials, sends one Request, reads one Response, and
// closes the connection.
type Client struct {
	socketPath string
}

// NewClient returns a Client bound to the Unix socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

func (c *Client) call(ctx context.Context, req Request) (Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("connect to control plane at %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := writeMsg(conn, req); err != nil {
		return Response{}, fmt.Errorf("send control-plane request: %w", err)
	}

	var resp Response
	if err := readMsg(conn, &resp); err != nil {
		return Response{}, fmt.Errorf("read control-plane response: %w", err)
	}
	if resp.Error != "" {
		return Response{}, fmt.Errorf("control plane: %s", resp.Error)
	}
	return resp, nil
}

// AnchorGet reads the pool's current anchor watermark.
func (c *Client) AnchorGet(ctx context.Context) (types.AnchorState, error) {
	resp, err := c.call(ctx, Request{Op: OpAnchorGet})
	if err != nil {
		return types.AnchorState{}, err
	}
	return *resp.Anchor, nil
}

// AnchorSet sets the pool's anchor watermark to anchor.
func (c *Client) AnchorSet(ctx context.Context, anchor string) (types.AnchorState, error) {
	resp, err := c.call(ctx, Request{Op: OpAnchorSet, Anchor: anchor})
	if err != nil {
		return types.AnchorState{}, err
	}
	return *resp.Anchor, nil
}

// AnchorReset moves the pool's anchor watermark to the newest source's sort
// key, zeroes chunks_since_anchor, and returns the state from before the
// reset.
func (c *Client) AnchorReset(ctx context.Context) (types.AnchorState, error) {
	resp, err := c.call(ctx, Request{Op: OpAnchorReset})
	if err != nil {
		return types.AnchorState{}, err
	}
	return *resp.Anchor, nil
}

// Stats fetches the pool's current metrics snapshot.
func (c *Client) Stats(ctx context.Context) (StatsPayload, error) {
	resp, err := c.call(ctx, Request{Op: OpStats})
	if err != nil {
		return StatsPayload{}, err
	}
	return *resp.Stats, nil
}
