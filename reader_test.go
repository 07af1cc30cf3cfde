package geofeatures_test

import (
	"context"
	"io/fs"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-geofeatures"
)

func TestReadSample(t *testing.T) {
	fsys := fstest.MapFS{
		"grid.bil": &fstest.MapFile{
			Data: []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05},
		},
	}

	for _, tc := range []struct {
		name        string
		filename    string
		offset      int64
		width       int
		expected    []byte
		expectedErr error
	}{
		{
			name:     "first",
			filename: "grid.bil",
			offset:   0,
			width:    2,
			expected: []byte{0x00, 0x01},
		},
		{
			name:     "last",
			filename: "grid.bil",
			offset:   4,
			width:    2,
			expected: []byte{0x04, 0x05},
		},
		{
			name:        "short_read",
			filename:    "grid.bil",
			offset:      5,
			width:       2,
			expectedErr: geofeatures.ErrDatasetUnavailable,
		},
		{
			name:        "past_end",
			filename:    "grid.bil",
			offset:      100,
			width:       2,
			expectedErr: geofeatures.ErrDatasetUnavailable,
		},
		{
			name:        "missing",
			filename:    "missing.bil",
			width:       2,
			expectedErr: fs.ErrNotExist,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := geofeatures.ReadSample(t.Context(), fsys, tc.filename, tc.offset, tc.width)
			if tc.expectedErr != nil {
				assert.IsError(t, err, tc.expectedErr)
				assert.IsError(t, err, geofeatures.ErrDatasetUnavailable)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestReadSampleCanceled(t *testing.T) {
	fsys := fstest.MapFS{
		"grid.bil": &fstest.MapFile{
			Data: []byte{0x00, 0x01},
		},
	}
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := geofeatures.ReadSample(ctx, fsys, "grid.bil", 0, 2)
	assert.IsError(t, err, geofeatures.ErrDatasetUnavailable)
	assert.IsError(t, err, context.Canceled)
}

// A blockingFS is a filesystem whose files cannot be opened until release is
// closed.
type blockingFS struct {
	fstest.MapFS
	release chan struct{}
	closed  atomic.Int32
}

type countingFile struct {
	fs.File
	closed *atomic.Int32
}

func (f *countingFile) Close() error {
	f.closed.Add(1)
	return f.File.Close()
}

func (b *blockingFS) Open(name string) (fs.File, error) {
	<-b.release
	file, err := b.MapFS.Open(name)
	if err != nil {
		return nil, err
	}
	return &countingFile{File: file, closed: &b.closed}, nil
}

func TestReadSampleTimeout(t *testing.T) {
	fsys := &blockingFS{
		MapFS: fstest.MapFS{
			"grid.bil": &fstest.MapFile{
				Data: []byte{0x00, 0x01},
			},
		},
		release: make(chan struct{}),
	}

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	_, err := geofeatures.ReadSample(ctx, fsys, "grid.bil", 0, 2)
	assert.IsError(t, err, geofeatures.ErrDatasetUnavailable)
	assert.IsError(t, err, context.DeadlineExceeded)

	close(fsys.release)
	deadline := time.Now().Add(5 * time.Second)
	for fsys.closed.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, int32(1), fsys.closed.Load())
}
