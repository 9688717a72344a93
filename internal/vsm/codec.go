package vsm

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/hyperjump/bookrec/internal/models"
)

// Artifact layout (little-endian): magic "BVSM", version uint32, term count uint32, then per
// term: string, idf float64 bits. Item count uint32, then per item: id, title, presence flags
// byte, price / review score float64 bits and review summary string when present, text, row
// entry count uint32 and (dimension uint32, weight float64 bits) pairs. Strings are a uint32
// byte length followed by UTF-8 bytes. A CRC-32 (IEEE) of everything before it closes the file.
const (
	artifactMagic   = "BVSM"
	artifactVersion = uint32(1)

	maxStringLen = 1 << 20
	maxCount     = 1 << 26
)

const (
	flagPrice byte = 1 << iota
	flagReviewScore
	flagReviewSummary
)

// Encode writes the model artifact to w. It fails, before anything past the offending field is
// written, when a string or count exceeds what Decode accepts.
func (m *Model) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	crc := crc32.NewIEEE()
	e := &encoder{w: io.MultiWriter(bw, crc)}

	e.bytes([]byte(artifactMagic))
	e.uint32(artifactVersion)
	e.count(len(m.terms))
	for i, term := range m.terms {
		e.string(term)
		e.float64(m.idf[i])
	}
	e.count(len(m.items))
	for i, b := range m.items {
		e.string(b.ID)
		e.string(b.Title)
		var flags byte
		if b.Price != nil {
			flags |= flagPrice
		}
		if b.ReviewScore != nil {
			flags |= flagReviewScore
		}
		if b.ReviewSummary != nil {
			flags |= flagReviewSummary
		}
		e.bytes([]byte{flags})
		if b.Price != nil {
			e.float64(*b.Price)
		}
		if b.ReviewScore != nil {
			e.float64(*b.ReviewScore)
		}
		if b.ReviewSummary != nil {
			e.string(*b.ReviewSummary)
		}
		e.string(b.Text)
		row := m.rows[i]
		e.count(row.Len())
		for k, idx := range row.Indices {
			e.uint32(uint32(idx))
			e.float64(row.Weights[k])
		}
	}
	if e.err != nil {
		return fmt.Errorf("encode model: %w", e.err)
	}
	if err := binary.Write(bw, binary.LittleEndian, crc.Sum32()); err != nil {
		return fmt.Errorf("write checksum: %w", err)
	}
	return bw.Flush()
}

// Save writes the artifact to path atomically: a temp file in the same directory is
// written, synced, and renamed over path. The directory is created if needed.
func (m *Model) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if err := m.Encode(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace model file: %w", err)
	}
	return nil
}

// Decode reads a model artifact from r. Any structural problem yields an error wrapping
// ErrLoadFailure; an artifact with no items also wraps ErrCorpusEmpty.
func Decode(r io.Reader) (*Model, error) {
	crc := crc32.NewIEEE()
	br := bufio.NewReader(r)
	d := &decoder{r: io.TeeReader(br, crc)}

	magic := d.bytes(len(artifactMagic))
	if d.err == nil && string(magic) != artifactMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrLoadFailure, magic)
	}
	if v := d.uint32(); d.err == nil && v != artifactVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrLoadFailure, v)
	}

	nTerms := d.count()
	terms := make([]string, 0, min(nTerms, 1<<16))
	idf := make([]float64, 0, min(nTerms, 1<<16))
	for i := 0; i < nTerms && d.err == nil; i++ {
		term := d.string()
		w := d.float64()
		if d.err == nil && (w <= 0 || math.IsNaN(w) || math.IsInf(w, 0)) {
			d.fail(fmt.Errorf("term %q has invalid idf %v", term, w))
		}
		terms = append(terms, term)
		idf = append(idf, w)
	}

	nItems := d.count()
	items := make([]models.Book, 0, min(nItems, 1<<16))
	rows := make([]Vector, 0, min(nItems, 1<<16))
	for i := 0; i < nItems && d.err == nil; i++ {
		b := models.Book{ID: d.string(), Title: d.string()}
		flags := d.bytes(1)
		if d.err != nil {
			break
		}
		if flags[0]&flagPrice != 0 {
			b.Price = models.Float(d.float64())
		}
		if flags[0]&flagReviewScore != 0 {
			b.ReviewScore = models.Float(d.float64())
		}
		if flags[0]&flagReviewSummary != 0 {
			b.ReviewSummary = models.String(d.string())
		}
		b.Text = d.string()
		items = append(items, b)
		rows = append(rows, d.row(nTerms))
	}

	sum := crc.Sum32()
	var stored uint32
	if d.err == nil {
		if err := binary.Read(br, binary.LittleEndian, &stored); err != nil {
			d.fail(fmt.Errorf("read checksum: %w", err))
		} else if stored != sum {
			d.fail(fmt.Errorf("checksum mismatch: stored %08x, computed %08x", stored, sum))
		} else if _, err := br.ReadByte(); err != io.EOF {
			d.fail(errors.New("trailing data after checksum"))
		}
	}
	if d.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailure, d.err)
	}
	m, err := newModel(terms, idf, items, rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailure, err)
	}
	return m, nil
}

// Load reads the artifact at path.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open model file: %w", ErrLoadFailure, err)
	}
	defer f.Close()
	return Decode(f)
}

type encoder struct {
	w   io.Writer
	err error
	buf [8]byte
}

func (e *encoder) bytes(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) uint32(v uint32) {
	binary.LittleEndian.PutUint32(e.buf[:4], v)
	e.bytes(e.buf[:4])
}

func (e *encoder) float64(v float64) {
	binary.LittleEndian.PutUint64(e.buf[:8], math.Float64bits(v))
	e.bytes(e.buf[:8])
}

func (e *encoder) count(n int) {
	if e.err == nil && n > maxCount {
		e.err = fmt.Errorf("count %d exceeds limit %d", n, maxCount)
		return
	}
	e.uint32(uint32(n))
}

func (e *encoder) string(s string) {
	if e.err == nil && len(s) > maxStringLen {
		e.err = fmt.Errorf("string length %d exceeds limit %d", len(s), maxStringLen)
		return
	}
	e.uint32(uint32(len(s)))
	e.bytes([]byte(s))
}

type decoder struct {
	r   io.Reader
	err error
	buf [8]byte
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.fail(fmt.Errorf("truncated artifact: %w", err))
		return nil
	}
	return b
}

func (d *decoder) uint32() uint32 {
	if d.err != nil {
		return 0
	}
	if _, err := io.ReadFull(d.r, d.buf[:4]); err != nil {
		d.fail(fmt.Errorf("truncated artifact: %w", err))
		return 0
	}
	return binary.LittleEndian.Uint32(d.buf[:4])
}

func (d *decoder) float64() float64 {
	if d.err != nil {
		return 0
	}
	if _, err := io.ReadFull(d.r, d.buf[:8]); err != nil {
		d.fail(fmt.Errorf("truncated artifact: %w", err))
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(d.buf[:8]))
}

func (d *decoder) count() int {
	n := d.uint32()
	if n > maxCount {
		d.fail(fmt.Errorf("count %d exceeds limit", n))
		return 0
	}
	return int(n)
}

func (d *decoder) string() string {
	n := d.uint32()
	if n > maxStringLen {
		d.fail(fmt.Errorf("string length %d exceeds limit", n))
		return ""
	}
	return string(d.bytes(int(n)))
}

// row reads one sparse row and checks it against the vocabulary size.
func (d *decoder) row(dims int) Vector {
	nnz := d.count()
	if d.err == nil && nnz > dims {
		d.fail(fmt.Errorf("row has %d entries for %d dimensions", nnz, dims))
	}
	v := Vector{Indices: make([]int, 0, nnz), Weights: make([]float64, 0, nnz)}
	prev := -1
	for k := 0; k < nnz && d.err == nil; k++ {
		idx := int(d.uint32())
		w := d.float64()
		if d.err != nil {
			break
		}
		if idx >= dims || idx <= prev {
			d.fail(fmt.Errorf("row dimension %d out of order or range", idx))
			break
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			d.fail(fmt.Errorf("row weight %v is invalid", w))
			break
		}
		prev = idx
		v.Indices = append(v.Indices, idx)
		v.Weights = append(v.Weights, w)
	}
	return v
}
