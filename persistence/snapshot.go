package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/vecrecall/groundtruth"
)

// Save writes a snapshot of t to w.
func Save(w io.Writer, t *groundtruth.Tracker, c Compression) error {
	return Encode(w, t.State(), c)
}

// Load reads a snapshot from r and restores the tracker.
func Load(r io.Reader, opts ...groundtruth.Option) (*groundtruth.Tracker, error) {
	s, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return groundtruth.Restore(s, opts...)
}

// Encode writes s to w in snapshot format.
func Encode(w io.Writer, s groundtruth.State, c Compression) error {
	if !c.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
	mc, err := metricCode(s.Metric)
	if err != nil {
		return err
	}
	if len(s.Queries) == 0 || len(s.Neighbors) != len(s.Queries) {
		return fmt.Errorf("persistence: %d queries with %d neighbor lists", len(s.Queries), len(s.Neighbors))
	}

	dim := len(s.Queries[0])
	header := FileHeader{
		Magic:       MagicNumber,
		Version:     Version,
		Compression: uint8(c),
		Metric:      mc,
		TieBreak:    uint8(s.TieBreak),
		K:           uint32(s.K),
		Dimension:   uint32(dim),
		NumQueries:  uint32(len(s.Queries)),
		Seen:        s.Seen,
	}

	body, err := encodeBody(s, dim)
	if err != nil {
		return err
	}
	block, err := compressBlock(body, c)
	if err != nil {
		return err
	}

	cw := NewChecksumWriter(w)
	if err := binary.Write(cw, binary.LittleEndian, &header); err != nil {
		return err
	}
	if _, err := cw.Write(block); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, cw.Sum())
}

// Decode reads a snapshot from r.
func Decode(r io.Reader) (groundtruth.State, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return groundtruth.State{}, err
	}
	if len(data) < headerSize+footerSize {
		return groundtruth.State{}, fmt.Errorf("%w: %d bytes", ErrTruncated, len(data))
	}

	payload := data[:len(data)-footerSize]
	expected := binary.LittleEndian.Uint32(data[len(data)-footerSize:])
	if actual := CalculateChecksum(payload); actual != expected {
		return groundtruth.State{}, &ChecksumMismatchError{Expected: expected, Actual: actual}
	}

	var header FileHeader
	if err := binary.Read(bytes.NewReader(payload[:headerSize]), binary.LittleEndian, &header); err != nil {
		return groundtruth.State{}, err
	}
	if header.Magic != MagicNumber {
		return groundtruth.State{}, fmt.Errorf("%w: got 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return groundtruth.State{}, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, header.Version)
	}
	c := Compression(header.Compression)
	if !c.valid() {
		return groundtruth.State{}, fmt.Errorf("%w: %d", ErrUnknownCompression, c)
	}
	metric, err := metricFromCode(header.Metric)
	if err != nil {
		return groundtruth.State{}, err
	}

	body, err := decompressBlock(payload[headerSize:], c)
	if err != nil {
		return groundtruth.State{}, err
	}

	s := groundtruth.State{
		Metric:   metric,
		K:        int(header.K),
		TieBreak: groundtruth.TieBreak(header.TieBreak),
		Seen:     header.Seen,
	}
	if err := decodeBody(body, &s, int(header.NumQueries), int(header.Dimension)); err != nil {
		return groundtruth.State{}, err
	}
	return s, nil
}

func encodeBody(s groundtruth.State, dim int) ([]byte, error) {
	var buf bytes.Buffer
	le := binary.LittleEndian

	var scratch []byte
	for _, q := range s.Queries {
		if len(q) != dim {
			return nil, &groundtruth.ErrDimensionMismatch{Expected: dim, Actual: len(q)}
		}
		scratch = scratch[:0]
		for _, v := range q {
			scratch = le.AppendUint32(scratch, math.Float32bits(v))
		}
		buf.Write(scratch)
	}

	for _, entries := range s.Neighbors {
		scratch = le.AppendUint32(scratch[:0], uint32(len(entries)))
		for _, e := range entries {
			scratch = le.AppendUint32(scratch, uint32(len(e.ID)))
			scratch = append(scratch, e.ID...)
			scratch = le.AppendUint64(scratch, math.Float64bits(e.Distance))
			scratch = le.AppendUint64(scratch, e.Seq)
		}
		buf.Write(scratch)
	}

	return buf.Bytes(), nil
}

// bodyReader consumes a body buffer and remembers the first overrun.
type bodyReader struct {
	data []byte
	err  error
}

func (b *bodyReader) take(n int) []byte {
	if b.err != nil {
		return nil
	}
	if n < 0 || n > len(b.data) {
		b.err = fmt.Errorf("%w: body", ErrTruncated)
		return nil
	}
	out := b.data[:n]
	b.data = b.data[n:]
	return out
}

func (b *bodyReader) uint32() uint32 {
	p := b.take(4)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(p)
}

func (b *bodyReader) uint64() uint64 {
	p := b.take(8)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(p)
}

func decodeBody(body []byte, s *groundtruth.State, numQueries, dim int) error {
	br := &bodyReader{data: body}

	// Every query needs dim floats plus a count, so reject impossible shapes
	// before allocating.
	if int64(numQueries)*(int64(dim)*4+4) > int64(len(body)) {
		return fmt.Errorf("%w: %d queries of dimension %d", ErrTruncated, numQueries, dim)
	}

	data := make([]float32, numQueries*dim)
	s.Queries = make([][]float32, numQueries)
	for i := range numQueries {
		q := data[i*dim : (i+1)*dim : (i+1)*dim]
		for j := range q {
			q[j] = math.Float32frombits(br.uint32())
		}
		s.Queries[i] = q
	}

	s.Neighbors = make([][]groundtruth.StateEntry, numQueries)
	for i := range numQueries {
		n := int(br.uint32())
		if br.err != nil {
			return br.err
		}
		if n > s.K {
			return fmt.Errorf("%w: query %d holds %d neighbors, k=%d", groundtruth.ErrCorruptState, i, n, s.K)
		}
		entries := make([]groundtruth.StateEntry, n)
		for j := range entries {
			idLen := int(br.uint32())
			entries[j] = groundtruth.StateEntry{
				ID:       string(br.take(idLen)),
				Distance: math.Float64frombits(br.uint64()),
				Seq:      br.uint64(),
			}
		}
		s.Neighbors[i] = entries
	}

	if br.err != nil {
		return br.err
	}
	if len(br.data) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", groundtruth.ErrCorruptState, len(br.data))
	}
	return nil
}
