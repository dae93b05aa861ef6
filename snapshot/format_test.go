package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/octogo/cell"
	"github.com/hupe1980/octogo/ident"
	"github.com/hupe1980/octogo/internal/resource"
)

func testRows(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		rows[i] = Row{
			Address:  cell.MustNew(uint8(i%8), uint8(i/8%8), uint8(i/64%8)),
			Identity: ident.FromUint64(uint64(i % 50)),
		}
	}
	return rows
}

func encode(t *testing.T, rows []Row, opts WriterOptions) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, opts)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func decode(t *testing.T, data []byte, rc *resource.Controller) (Header, []Row, error) {
	t.Helper()
	r, err := NewReader(bytes.NewReader(data), rc)
	if err != nil {
		return Header{}, nil, err
	}
	var out []Row
	for row, err := range r.All() {
		if err != nil {
			return r.Header(), out, err
		}
		out = append(out, row)
	}
	return r.Header(), out, nil
}

func TestRoundTrip(t *testing.T) {
	rows := testRows(1000)
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			rc := resource.NewController(resource.Config{BufferLimitBytes: 1 << 20})
			data := encode(t, rows, WriterOptions{Compression: c, BlockRows: 300, Controller: rc})
			assert.Zero(t, rc.BufferUsage())

			h, got, err := decode(t, data, rc)
			require.NoError(t, err)
			assert.Equal(t, c, h.Compression)
			assert.Equal(t, uint64(1000), h.Rows)
			assert.Equal(t, uint32(4), h.Blocks)
			assert.Equal(t, rows, got)
			assert.Zero(t, rc.BufferUsage())

			if c != CompressionNone {
				assert.Less(t, len(data), headerSize+len(rows)*rowSize)
			}
		})
	}
}

func TestEmptyFile(t *testing.T) {
	data := encode(t, nil, WriterOptions{Compression: CompressionZSTD})
	assert.Len(t, data, headerSize)

	h, got, err := decode(t, data, nil)
	require.NoError(t, err)
	assert.Zero(t, h.Blocks)
	assert.Empty(t, got)
}

func TestIncompressibleBlockStoredRaw(t *testing.T) {
	rows := []Row{{Address: cell.MustNew(1, 7, 2, 6, 3, 5, 4, 0, 1, 7, 2, 6, 3, 5, 4, 0, 6, 1, 3), Identity: ident.ID{Hi: 0x0123456789abcdef, Lo: 0xfedcba9876543210}}}
	data := encode(t, rows, WriterOptions{Compression: CompressionLZ4})

	storedLen := binary.LittleEndian.Uint32(data[headerSize+4:])
	assert.Zero(t, storedLen)

	_, got, err := decode(t, data, nil)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestCorruption(t *testing.T) {
	data := encode(t, testRows(100), WriterOptions{Compression: CompressionZSTD, BlockRows: 40})

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"header checksum", func(b []byte) []byte { b[8]++; return b }},
		{"short header", func(b []byte) []byte { return b[:10] }},
		{"truncated block", func(b []byte) []byte { return b[:len(b)-3] }},
		{"payload", func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decode(t, tt.mutate(bytes.Clone(data)), nil)
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestUnsupportedVersion(t *testing.T) {
	h := Header{Version: FormatVersion + 1, BlockRows: 1}
	_, err := NewReader(bytes.NewReader(h.encode()), nil)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestBufferLimit(t *testing.T) {
	rc := resource.NewController(resource.Config{BufferLimitBytes: 64})
	var buf bytes.Buffer
	w, err := NewWriter(&buf, WriterOptions{BlockRows: 10, Controller: rc})
	require.NoError(t, err)
	for _, r := range testRows(9) {
		require.NoError(t, w.Write(r))
	}
	err = w.Write(testRows(10)[9])
	require.ErrorIs(t, err, resource.ErrBufferLimitExceeded)
	_ = w.Close()
	assert.Zero(t, rc.BufferUsage())
}

func TestCompressionStrings(t *testing.T) {
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("gzip")
	assert.Error(t, err)
	assert.Equal(t, fmt.Sprintf("compression(%d)", 9), Compression(9).String())

	_, err = NewWriter(&bytes.Buffer{}, WriterOptions{Compression: 9})
	assert.Error(t, err)
}
