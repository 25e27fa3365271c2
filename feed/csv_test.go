package feed

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const candleFile = `time,open,high,low,close,volume
2026-03-02T09:00:00Z,1.0840,1.0852,1.0838,1.0850,120
2026-03-02T09:01:00Z,1.0850,1.0861,1.0849,1.0860,98
2026-03-02 09:02:00,1.0860,1.0862,1.0841,1.0845,110
`

func writeCandles(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	switch filepath.Ext(name) {
	case ".gz":
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, err := zw.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	case ".xz":
		var buf bytes.Buffer
		zw, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		_, err = zw.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	default:
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return path
}

func drain(t *testing.T, src Source) []string {
	t.Helper()

	var times []string
	for {
		c, err := src.Next()
		if err == io.EOF {
			return times
		}
		require.NoError(t, err)
		times = append(times, c.Time.UTC().Format(time.RFC3339))
	}
}

func TestCSVReadsPlainFile(t *testing.T) {
	t.Parallel()

	src, err := NewCSV(writeCandles(t, "eurusd.csv", candleFile), "EURUSD")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, "EURUSD", first.Symbol)
	assert.Equal(t, 1.0840, first.Open)
	assert.Equal(t, 1.0852, first.High)
	assert.Equal(t, 1.0838, first.Low)
	assert.Equal(t, 1.0850, first.Close)
	assert.Equal(t, 120.0, first.Volume)

	second, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 1.0860, second.Close)

	// Bare "2006-01-02 15:04:05" timestamps are read as UTC.
	third, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 2, 0, 0, time.UTC), third.Time.UTC())

	_, err = src.Next()
	assert.Equal(t, io.EOF, err)
	assert.NoError(t, src.Close())
}

func TestCSVReadsGzip(t *testing.T) {
	t.Parallel()

	src, err := NewCSV(writeCandles(t, "eurusd.csv.gz", candleFile), "EURUSD")
	require.NoError(t, err)
	defer src.Close()

	assert.Len(t, drain(t, src), 3)
}

func TestCSVReadsXz(t *testing.T) {
	t.Parallel()

	src, err := NewCSV(writeCandles(t, "eurusd.csv.xz", candleFile), "EURUSD")
	require.NoError(t, err)
	defer src.Close()

	assert.Len(t, drain(t, src), 3)
}

func TestCSVRangeFilter(t *testing.T) {
	t.Parallel()

	from := time.Date(2026, 3, 2, 9, 1, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 9, 2, 0, 0, time.UTC)
	src, err := NewCSVRange(writeCandles(t, "eurusd.csv", candleFile), "EURUSD", from, to)
	require.NoError(t, err)
	defer src.Close()

	got := drain(t, src)
	assert.Equal(t, []string{"2026-03-02T09:01:00Z"}, got)
}

func TestCSVSkipsShortRows(t *testing.T) {
	t.Parallel()

	content := "2026-03-02T09:00:00Z,1.0840,1.0852,1.0838,1.0850,120\n" +
		"oops,row\n" +
		"2026-03-02T09:01:00Z,1.0850,1.0861,1.0849,1.0860,98\n"
	src, err := NewCSV(writeCandles(t, "gappy.csv", content), "EURUSD")
	require.NoError(t, err)
	defer src.Close()

	assert.Len(t, drain(t, src), 2)
}

func TestCSVNoHeader(t *testing.T) {
	t.Parallel()

	content := "2026-03-02T09:00:00Z,1.0840,1.0852,1.0838,1.0850,120\n"
	src, err := NewCSV(writeCandles(t, "bare.csv", content), "EURUSD")
	require.NoError(t, err)
	defer src.Close()

	c, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 1.0840, c.Open)
}

func TestCSVBadValue(t *testing.T) {
	t.Parallel()

	content := "2026-03-02T09:00:00Z,abc,1.0852,1.0838,1.0850,120\n"
	src, err := NewCSV(writeCandles(t, "bad.csv", content), "EURUSD")
	require.NoError(t, err)
	defer src.Close()

	_, err = src.Next()
	assert.ErrorContains(t, err, "bad value")
}

func TestCSVMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewCSV(filepath.Join(t.TempDir(), "nope.csv"), "EURUSD")
	assert.Error(t, err)
}
