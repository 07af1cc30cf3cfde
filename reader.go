package geofeatures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
)

var errShortRead = errors.New("short read")

// ReadSample reads width bytes at offset from the file name in fsys. The file
// is opened and closed within the call. If the file cannot be opened or
// holds fewer than offset+width bytes, the returned error wraps
// ErrDatasetUnavailable.
//
// If ctx is done before the read completes ReadSample returns immediately
// with ErrDatasetUnavailable and the file is closed when the abandoned read
// finishes.
func ReadSample(ctx context.Context, fsys fs.FS, name string, offset int64, width int) ([]byte, error) {
	return withContext(ctx, name, func() ([]byte, error) {
		return readSample(fsys, name, offset, width)
	})
}

// withContext calls read and returns its result, unless ctx is done first,
// in which case it returns an error wrapping ErrDatasetUnavailable and leaves
// read to finish in the background.
func withContext[T any](ctx context.Context, name string, read func() (T, error)) (T, error) {
	var zero T
	if ctx.Done() == nil {
		return read()
	}
	if err := ctx.Err(); err != nil {
		return zero, fmt.Errorf("%w: %s: %w", ErrDatasetUnavailable, name, context.Cause(ctx))
	}

	var (
		value T
		err   error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		value, err = read()
	}()

	select {
	case <-done:
		return value, err
	case <-ctx.Done():
		return zero, fmt.Errorf("%w: %s: %w", ErrDatasetUnavailable, name, context.Cause(ctx))
	}
}

func readSample(fsys fs.FS, name string, offset int64, width int) ([]byte, error) {
	file, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatasetUnavailable, err)
	}
	defer file.Close()

	data := make([]byte, width)
	switch n, err := readAt(file, data, offset); {
	case n == width:
		return data, nil
	case err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: %s: %w at offset %d", ErrDatasetUnavailable, name, errShortRead, offset)
	default:
		return nil, fmt.Errorf("%w: %s: %w", ErrDatasetUnavailable, name, err)
	}
}

// readAt reads len(data) bytes at offset from file, using the most direct
// method file supports.
func readAt(file fs.File, data []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("negative offset %d", offset)
	}
	switch f := file.(type) {
	case io.ReaderAt:
		return f.ReadAt(data, offset)
	case io.Seeker:
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return 0, err
		}
		return io.ReadFull(file, data)
	default:
		if _, err := io.CopyN(io.Discard, file, offset); err != nil {
			return 0, err
		}
		return io.ReadFull(file, data)
	}
}
