package flight

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "AAL100,40.6,-73.7\nBAW200,51.4,-0.4\n"

func writeFile(t *testing.T, name string, wrap func(io.Writer) (io.WriteCloser, error)) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w, err := wrap(f)
	require.NoError(t, err)
	_, err = io.WriteString(w, sample)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return path
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestReadFile_Compressed(t *testing.T) {
	cases := map[string]func(io.Writer) (io.WriteCloser, error){
		"flights.csv": func(w io.Writer) (io.WriteCloser, error) { return nopWriteCloser{w}, nil },
		"flights.csv.gz": func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		},
		"flights.csv.zst": func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		},
		"flights.csv.lz4": func(w io.Writer) (io.WriteCloser, error) {
			return lz4.NewWriter(w), nil
		},
	}
	for name, wrap := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, name, wrap)
			flights, err := ReadFile(context.Background(), path, nil)
			require.NoError(t, err)
			require.Len(t, flights, 2)
			assert.Equal(t, "AAL100", flights[0].CallSign)
			assert.Equal(t, "BAW200", flights[1].CallSign)
		})
	}
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
