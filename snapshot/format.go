package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/hupe1980/octogo/cell"
	"github.com/hupe1980/octogo/ident"
	"github.com/hupe1980/octogo/internal/hash"
	"github.com/hupe1980/octogo/internal/resource"
)

const (
	magic = "OCT1"

	// FormatVersion is the version written by this package.
	FormatVersion uint16 = 1

	headerSize      = 32
	blockHeaderSize = 12
	rowSize         = 24

	// DefaultBlockRows is the number of rows per block.
	DefaultBlockRows = 4096
	maxBlockRows     = 1 << 20
)

var (
	// ErrCorrupt is returned for files that fail structural or checksum
	// validation.
	ErrCorrupt = errors.New("snapshot: corrupt file")
	// ErrUnsupportedVersion is returned for files written by a newer format.
	ErrUnsupportedVersion = errors.New("snapshot: unsupported format version")
)

// Row is one persisted (leaf cell, element) pair.
type Row struct {
	Address  cell.Address
	Identity ident.ID
}

// Header describes a snapshot file.
type Header struct {
	Version     uint16
	Compression Compression
	Rows        uint64
	Blocks      uint32
	BlockRows   uint32
}

func (h Header) encode() []byte {
	b := make([]byte, headerSize)
	copy(b[0:4], magic)
	binary.LittleEndian.PutUint16(b[4:], h.Version)
	b[6] = byte(h.Compression)
	binary.LittleEndian.PutUint64(b[8:], h.Rows)
	binary.LittleEndian.PutUint32(b[16:], h.Blocks)
	binary.LittleEndian.PutUint32(b[20:], h.BlockRows)
	binary.LittleEndian.PutUint32(b[28:], hash.CRC32C(b[:28]))
	return b
}

func decodeHeader(b []byte) (Header, error) {
	if len(b) != headerSize || string(b[0:4]) != magic {
		return Header{}, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if !hash.Verify(b[:28], binary.LittleEndian.Uint32(b[28:])) {
		return Header{}, fmt.Errorf("%w: header checksum mismatch", ErrCorrupt)
	}
	h := Header{
		Version:     binary.LittleEndian.Uint16(b[4:]),
		Compression: Compression(b[6]),
		Rows:        binary.LittleEndian.Uint64(b[8:]),
		Blocks:      binary.LittleEndian.Uint32(b[16:]),
		BlockRows:   binary.LittleEndian.Uint32(b[20:]),
	}
	if h.Version > FormatVersion {
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if !h.Compression.valid() {
		return Header{}, fmt.Errorf("%w: compression %d", ErrCorrupt, h.Compression)
	}
	if h.BlockRows == 0 || h.BlockRows > maxBlockRows {
		return Header{}, fmt.Errorf("%w: block rows %d", ErrCorrupt, h.BlockRows)
	}
	return h, nil
}

// WriterOptions configures a Writer.
type WriterOptions struct {
	Compression Compression
	// BlockRows defaults to DefaultBlockRows.
	BlockRows int
	// Controller, if set, accounts the buffered blocks against its buffer
	// limit.
	Controller *resource.Controller
}

// Writer encodes rows into a snapshot file. Blocks are buffered until Close
// because the header carries the final counts.
type Writer struct {
	w    io.Writer
	opts WriterOptions

	raw      []byte
	body     bytes.Buffer
	rows     uint64
	blocks   uint32
	reserved int64
	closed   bool
}

// NewWriter returns a writer that emits the file to w on Close.
func NewWriter(w io.Writer, opts WriterOptions) (*Writer, error) {
	if !opts.Compression.valid() {
		return nil, fmt.Errorf("snapshot: unknown compression %d", opts.Compression)
	}
	if opts.BlockRows <= 0 {
		opts.BlockRows = DefaultBlockRows
	}
	opts.BlockRows = min(opts.BlockRows, maxBlockRows)
	return &Writer{
		w:    w,
		opts: opts,
		raw:  make([]byte, 0, opts.BlockRows*rowSize),
	}, nil
}

// Write appends one row.
func (w *Writer) Write(r Row) error {
	if w.closed {
		return errors.New("snapshot: write on closed writer")
	}
	w.raw = binary.LittleEndian.AppendUint64(w.raw, uint64(r.Address))
	w.raw = binary.LittleEndian.AppendUint64(w.raw, r.Identity.Hi)
	w.raw = binary.LittleEndian.AppendUint64(w.raw, r.Identity.Lo)
	w.rows++
	if len(w.raw) == w.opts.BlockRows*rowSize {
		return w.flushBlock()
	}
	return nil
}

// Rows returns the number of rows written so far.
func (w *Writer) Rows() uint64 { return w.rows }

func (w *Writer) flushBlock() error {
	if len(w.raw) == 0 {
		return nil
	}
	stored, err := compress(w.opts.Compression, w.raw)
	if err != nil {
		return err
	}
	payload := stored
	if payload == nil {
		payload = w.raw
	}

	n := int64(blockHeaderSize + len(payload))
	if err := w.opts.Controller.AcquireBuffer(n); err != nil {
		return fmt.Errorf("snapshot: buffer block: %w", err)
	}
	w.reserved += n

	var hdr [blockHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(w.raw)))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(stored)))
	binary.LittleEndian.PutUint32(hdr[8:], hash.CRC32C(w.raw))
	w.body.Write(hdr[:])
	w.body.Write(payload)

	w.blocks++
	w.raw = w.raw[:0]
	return nil
}

// Close flushes the last block and writes the file. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	defer func() {
		w.opts.Controller.ReleaseBuffer(w.reserved)
		w.reserved = 0
		w.body.Reset()
	}()

	if err := w.flushBlock(); err != nil {
		return err
	}
	h := Header{
		Version:     FormatVersion,
		Compression: w.opts.Compression,
		Rows:        w.rows,
		Blocks:      w.blocks,
		BlockRows:   uint32(w.opts.BlockRows),
	}
	if _, err := w.w.Write(h.encode()); err != nil {
		return err
	}
	_, err := w.body.WriteTo(w.w)
	return err
}

// Reader decodes a snapshot file sequentially.
type Reader struct {
	r      io.Reader
	rc     *resource.Controller
	header Header
}

// NewReader reads and validates the header. rc, if set, accounts each
// decoded block against its buffer limit.
func NewReader(r io.Reader, rc *resource.Controller) (*Reader, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: short header", ErrCorrupt)
		}
		return nil, err
	}
	h, err := decodeHeader(buf)
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, rc: rc, header: h}, nil
}

// Header returns the file header.
func (r *Reader) Header() Header { return r.header }

// All yields every row in file order. Iteration stops at the first error,
// which is yielded with a zero row.
func (r *Reader) All() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		var total uint64
		for range r.header.Blocks {
			raw, err := r.readBlock()
			if err != nil {
				yield(Row{}, err)
				return
			}
			ok := true
			for off := 0; off < len(raw) && ok; off += rowSize {
				ok = yield(Row{
					Address: cell.Address(binary.LittleEndian.Uint64(raw[off:])),
					Identity: ident.ID{
						Hi: binary.LittleEndian.Uint64(raw[off+8:]),
						Lo: binary.LittleEndian.Uint64(raw[off+16:]),
					},
				}, nil)
				total++
			}
			r.rc.ReleaseBuffer(int64(len(raw)))
			if !ok {
				return
			}
		}
		if total != r.header.Rows {
			yield(Row{}, fmt.Errorf("%w: %d rows, header says %d", ErrCorrupt, total, r.header.Rows))
		}
	}
}

// readBlock returns the raw rows of the next block with their size reserved
// on the controller.
func (r *Reader) readBlock() ([]byte, error) {
	var hdr [blockHeaderSize]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		return nil, truncated(err)
	}
	rawLen := binary.LittleEndian.Uint32(hdr[0:])
	storedLen := binary.LittleEndian.Uint32(hdr[4:])
	sum := binary.LittleEndian.Uint32(hdr[8:])

	if rawLen == 0 || rawLen%rowSize != 0 || rawLen > r.header.BlockRows*rowSize || storedLen >= rawLen {
		return nil, fmt.Errorf("%w: block lengths %d/%d", ErrCorrupt, rawLen, storedLen)
	}
	if storedLen != 0 && r.header.Compression == CompressionNone {
		return nil, fmt.Errorf("%w: compressed block in uncompressed file", ErrCorrupt)
	}

	if err := r.rc.AcquireBuffer(int64(rawLen)); err != nil {
		return nil, fmt.Errorf("snapshot: buffer block: %w", err)
	}

	payloadLen := rawLen
	if storedLen != 0 {
		payloadLen = storedLen
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		r.rc.ReleaseBuffer(int64(rawLen))
		return nil, truncated(err)
	}

	raw := payload
	if storedLen != 0 {
		var err error
		if raw, err = decompress(r.header.Compression, payload, int(rawLen)); err != nil {
			r.rc.ReleaseBuffer(int64(rawLen))
			return nil, err
		}
	}
	if !hash.Verify(raw, sum) {
		r.rc.ReleaseBuffer(int64(rawLen))
		return nil, fmt.Errorf("%w: block checksum mismatch", ErrCorrupt)
	}
	return raw, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: truncated", ErrCorrupt)
	}
	return err
}
