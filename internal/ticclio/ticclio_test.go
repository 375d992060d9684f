package ticclio

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOpenGzipRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.tsv.gz")
	w, err := Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "huis\t500\nhuus\t2\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Open(path)
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	assert.Equal(t, "huis\t500\nhuus\t2\n", string(data))

	// the bytes on disk really are gzip, not plain text
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, "huis", string(raw[:4]))
}

func TestCreateOpenPlainPassThrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.tsv")
	w, err := Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "plain\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "plain\n", string(raw))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.tsv"))
	assert.Error(t, err)
}

func TestScanLinesHandlesLongLines(t *testing.T) {
	long := strings.Repeat("word#", 200_000)
	sc := ScanLines(strings.NewReader("short\n" + long + "\n"))
	require.True(t, sc.Scan())
	assert.Equal(t, "short", sc.Text())
	require.True(t, sc.Scan())
	assert.Equal(t, long, sc.Text())
	require.NoError(t, sc.Err())
}
