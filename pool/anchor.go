package pool

import "github.com/justapithecus/chunkstream/types"

// ResetAnchor sets the anchor to the current newest source's sort key and
// atomically swaps chunks_since_anchor to zero, returning the pair as it
// stood immediately before the reset.
func (p *Pool) ResetAnchor() types.AnchorState {
	p.anchorMu.Lock()
	prevAnchor := p.anchor

	p.mu.Lock()
	newAnchor := prevAnchor
	if n := len(p.entries); n > 0 {
		newAnchor = p.entries[n-1].source.SortKey()
	}
	p.mu.Unlock()

	p.anchor = newAnchor
	p.anchorMu.Unlock()

	prevCount := p.chunksSinceAnchor.Swap(0)
	return types.AnchorState{ChunkAnchor: prevAnchor, ChunksSinceAnchor: prevCount}
}

// SetAnchor overwrites the anchor watermark directly, leaving
// chunks_since_anchor untouched.
func (p *Pool) SetAnchor(anchor string) {
	p.anchorMu.Lock()
	p.anchor = anchor
	p.anchorMu.Unlock()
}

// CurrentAnchor returns the anchor watermark and chunks ingested since it
// was last reset or set, without mutating either.
func (p *Pool) CurrentAnchor() types.AnchorState {
	p.anchorMu.Lock()
	anchor := p.anchor
	p.anchorMu.Unlock()
	return types.AnchorState{ChunkAnchor: anchor, ChunksSinceAnchor: p.chunksSinceAnchor.Load()}
}
