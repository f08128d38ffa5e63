// Package asset moves a document payload through the size-constrained
// document store by encoding it, splitting it into ordered fragments, and
// reassembling it losslessly on the way out.
package asset

import (
	"context"
	"errors"
	"fmt"
	"math"

	"pagepair/pkg/chunk"
	"pagepair/pkg/store"
)

// ErrEmptyPayload rejects zero-length uploads. An empty document can never
// be rendered, so refusing it up front beats storing a roomful of nothing.
var ErrEmptyPayload = errors.New("empty document payload")

// ProgressFunc receives the percentage of fragments durably transferred so
// far. Values are monotonically increasing and reach 100 only after the last
// fragment; it is never called after a failure.
type ProgressFunc func(percent int)

// Transport drives the chunk codec against a document store.
type Transport struct {
	store        store.Store
	fragmentSize int
}

// New builds a Transport writing fragments of at most fragmentSize
// characters. A non-positive size falls back to chunk.DefaultFragmentSize.
func New(s store.Store, fragmentSize int) *Transport {
	if fragmentSize <= 0 {
		fragmentSize = chunk.DefaultFragmentSize
	}
	return &Transport{store: s, fragmentSize: fragmentSize}
}

// FragmentSize reports the configured maximum fragment length.
func (t *Transport) FragmentSize() int {
	return t.fragmentSize
}

// Upload encodes payload, splits it, and writes each fragment keyed by
// (roomID, index). Writes are sequential: one fragment must be durable, or
// fail, before the next begins. Any write failure aborts the whole upload.
// Returns the fragment count.
func (t *Transport) Upload(ctx context.Context, payload []byte, roomID string, onProgress ProgressFunc) (int, error) {
	if len(payload) == 0 {
		return 0, ErrEmptyPayload
	}
	fragments, err := chunk.Split(chunk.Encode(payload), t.fragmentSize)
	if err != nil {
		return 0, err
	}
	for i, fragment := range fragments {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := t.store.PutChunk(ctx, roomID, i, fragment); err != nil {
			return 0, fmt.Errorf("write chunk %d: %w", i, err)
		}
		report(onProgress, i+1, len(fragments))
	}
	return len(fragments), nil
}

// Download reads fragments 0..fragmentCount-1 in order, failing fast on the
// first missing or unreadable one, then joins and decodes. A gap is fatal to
// the whole attempt; there is no partial result.
func (t *Transport) Download(ctx context.Context, roomID string, fragmentCount int, onProgress ProgressFunc) ([]byte, error) {
	if fragmentCount <= 0 {
		return nil, fmt.Errorf("room %s has no content", roomID)
	}
	fragments := make([]string, 0, fragmentCount)
	for i := 0; i < fragmentCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := t.store.GetChunk(ctx, roomID, i)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, data)
		report(onProgress, i+1, fragmentCount)
	}
	payload, err := chunk.Decode(chunk.Join(fragments))
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// report rounds the completed fraction up, clamped so 100 is only ever
// reported once the final fragment is durable.
func report(onProgress ProgressFunc, done, total int) {
	if onProgress == nil {
		return
	}
	percent := int(math.Ceil(float64(done) / float64(total) * 100))
	if done < total && percent > 99 {
		percent = 99
	}
	onProgress(percent)
}
