package prism

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/MrWong99/syllabify/pkg/spelling"
)

// ErrBadFormat is returned by [Load] for files that are not prism images.
var ErrBadFormat = errors.New("prism: bad file format")

var magic = [8]byte{'S', 'Y', 'L', 'P', 'R', 'I', 'S', 'M'}

// Save writes the prism image to path, replacing any existing file.
//
// Layout (little endian): magic, format string, dict and schema checksums,
// syllable count, alphabet, the base/check/value arrays and the descriptor
// table. Keys are not stored; they are recovered from the trie on load.
func (p *Prism) Save(path string) (err error) {
	if p.trie == nil {
		return fmt.Errorf("prism: save %q: not built", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("prism: save %q: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("prism: save %q: %w", path, cerr)
		}
	}()

	w := bufio.NewWriter(f)
	if err := p.encode(w); err != nil {
		return fmt.Errorf("prism: save %q: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("prism: save %q: %w", path, err)
	}
	return nil
}

func (p *Prism) encode(w io.Writer) error {
	e := &encoder{w: w}
	e.write(magic)
	e.str(p.meta.Format)
	e.write(p.meta.DictChecksum)
	e.write(p.meta.SchemaChecksum)
	e.write(uint32(p.meta.NumSyllables))
	e.str(string(p.trie.alphabet))
	e.write(uint32(len(p.trie.base)))
	e.write(p.trie.base)
	e.write(p.trie.check)
	e.write(p.trie.value)
	e.write(uint32(len(p.descriptors)))
	for _, list := range p.descriptors {
		e.write(uint32(len(list)))
		for _, d := range list {
			e.write(int32(d.SyllableID))
			e.write(uint8(d.Type))
			e.write(math.Float64bits(d.Credibility))
			e.str(d.Tips)
		}
	}
	return e.err
}

// Load memory-maps a prism image written by [Prism.Save] and decodes it into
// an independent Prism. The mapping is released before Load returns.
func Load(path string) (_ *Prism, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("prism: load %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("prism: load %q: %w", path, err)
	}
	if info.Size() < int64(len(magic)) {
		return nil, fmt.Errorf("prism: load %q: %w", path, ErrBadFormat)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("prism: load %q: mmap: %w", path, err)
	}
	defer func() {
		if uerr := m.Unmap(); err == nil && uerr != nil {
			err = fmt.Errorf("prism: load %q: unmap: %w", path, uerr)
		}
	}()

	p, err := decode(bytes.NewReader(m))
	if err != nil {
		return nil, fmt.Errorf("prism: load %q: %w", path, err)
	}
	return p, nil
}

func decode(r io.Reader) (*Prism, error) {
	d := &decoder{r: r}
	var gotMagic [8]byte
	d.read(&gotMagic)
	if d.err == nil && gotMagic != magic {
		return nil, ErrBadFormat
	}
	p := &Prism{trie: &doubleArray{}}
	p.meta.Format = d.str()
	if d.err == nil && p.meta.Format != FormatVersion {
		return nil, fmt.Errorf("%w: format %q", ErrBadFormat, p.meta.Format)
	}
	d.read(&p.meta.DictChecksum)
	d.read(&p.meta.SchemaChecksum)
	p.meta.NumSyllables = int(d.u32())
	alphabet := []byte(d.str())

	n := d.u32()
	if d.err == nil && n <= rootState {
		return nil, fmt.Errorf("%w: %d trie states", ErrBadFormat, n)
	}
	p.trie.base = make([]int32, d.bounded(n, 4))
	p.trie.check = make([]int32, len(p.trie.base))
	p.trie.value = make([]int32, len(p.trie.base))
	d.read(p.trie.base)
	d.read(p.trie.check)
	d.read(p.trie.value)

	numKeys := d.bounded(d.u32(), 4)
	p.descriptors = make([][]SpellingDescriptor, numKeys)
	for i := range p.descriptors {
		count := d.bounded(d.u32(), 17)
		list := make([]SpellingDescriptor, 0, count)
		for range count {
			var id int32
			var typ uint8
			var bits uint64
			d.read(&id)
			d.read(&typ)
			d.read(&bits)
			tips := d.str()
			t, err := spelling.ParseType(int(typ))
			if err != nil && d.err == nil {
				d.err = fmt.Errorf("%w: %w", ErrBadFormat, err)
			}
			list = append(list, SpellingDescriptor{
				SyllableID:  spelling.SyllableID(id),
				Type:        t,
				Credibility: math.Float64frombits(bits),
				Tips:        tips,
			})
		}
		p.descriptors[i] = list
	}
	if d.err != nil {
		if errors.Is(d.err, io.ErrUnexpectedEOF) || errors.Is(d.err, io.EOF) {
			return nil, fmt.Errorf("%w: truncated", ErrBadFormat)
		}
		return nil, d.err
	}

	p.trie.setAlphabet(alphabet)
	p.keys = p.trie.keys()
	if len(p.keys) != len(p.descriptors) {
		return nil, fmt.Errorf("%w: %d keys but %d descriptor lists", ErrBadFormat, len(p.keys), len(p.descriptors))
	}
	p.meta.NumSpellings = len(p.keys)
	p.meta.Alphabet = string(alphabet)
	return p, nil
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) write(v any) {
	if e.err != nil {
		return
	}
	e.err = binary.Write(e.w, binary.LittleEndian, v)
}

func (e *encoder) str(s string) {
	e.write(uint32(len(s)))
	if e.err == nil {
		_, e.err = io.WriteString(e.w, s)
	}
}

type decoder struct {
	r   io.Reader
	err error
}

func (d *decoder) read(v any) {
	if d.err != nil {
		return
	}
	d.err = binary.Read(d.r, binary.LittleEndian, v)
}

func (d *decoder) u32() uint32 {
	var v uint32
	d.read(&v)
	return v
}

func (d *decoder) str() string {
	n := d.bounded(d.u32(), 1)
	if d.err != nil || n == 0 {
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = err
		return ""
	}
	return string(b)
}

// bounded rejects element counts that cannot fit in the remaining input, so
// a corrupt header cannot trigger a huge allocation.
func (d *decoder) bounded(n uint32, elemSize int) int {
	if d.err != nil {
		return 0
	}
	if br, ok := d.r.(*bytes.Reader); ok && int64(n)*int64(elemSize) > int64(br.Len()) {
		d.err = fmt.Errorf("%w: count %d exceeds file size", ErrBadFormat, n)
		return 0
	}
	return int(n)
}
