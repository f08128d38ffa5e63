package archive

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrArchiveDisabled is returned when no object storage is configured.
var ErrArchiveDisabled = errors.New("archive storage is not configured")

// Disabled is an Archive that discards writes and cannot serve originals.
// It lets a deployment run without object storage; rooms still work from
// the chunked copy in the store.
type Disabled struct{}

func (Disabled) PutOriginal(_ context.Context, _ string, r io.Reader, _ int64, _ string) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func (Disabled) PresignOriginal(context.Context, string, time.Duration) (string, error) {
	return "", ErrArchiveDisabled
}

func (Disabled) DeleteOriginal(context.Context, string) error {
	return nil
}
