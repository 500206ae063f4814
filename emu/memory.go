package emu

import "github.com/pkg/errors"

// DefaultMemoryWords is the default data memory size in words.
const DefaultMemoryWords = 1024

// WordSize is the number of bytes per memory word.
const WordSize = 4

// ErrAddressOutOfRange is returned when an access falls outside data memory.
var ErrAddressOutOfRange = errors.New("address out of range")

// Memory is word-addressable data memory. Addresses are byte offsets;
// the word index is address / WordSize. Alignment is not checked.
type Memory struct {
	words []int32
}

// NewMemory creates a zeroed memory of DefaultMemoryWords words.
func NewMemory() *Memory {
	return NewMemoryWithSize(DefaultMemoryWords)
}

// NewMemoryWithSize creates a zeroed memory of the given number of words.
func NewMemoryWithSize(words int) *Memory {
	return &Memory{words: make([]int32, words)}
}

// Size returns the number of words.
func (m *Memory) Size() int {
	return len(m.words)
}

func (m *Memory) index(addr int32) (int, error) {
	if addr < 0 {
		return 0, errors.Wrapf(ErrAddressOutOfRange, "address %d", addr)
	}
	idx := int(addr / WordSize)
	if idx >= len(m.words) {
		return 0, errors.Wrapf(ErrAddressOutOfRange,
			"address %d (word %d of %d)", addr, idx, len(m.words))
	}
	return idx, nil
}

// ReadWord reads the word containing byte address addr.
func (m *Memory) ReadWord(addr int32) (int32, error) {
	idx, err := m.index(addr)
	if err != nil {
		return 0, err
	}
	return m.words[idx], nil
}

// WriteWord writes the word containing byte address addr.
func (m *Memory) WriteWord(addr int32, value int32) error {
	idx, err := m.index(addr)
	if err != nil {
		return err
	}
	m.words[idx] = value
	return nil
}

// Word returns the word at index i, or 0 if i is out of range.
func (m *Memory) Word(i int) int32 {
	if i < 0 || i >= len(m.words) {
		return 0
	}
	return m.words[i]
}

// Reset zeroes every word.
func (m *Memory) Reset() {
	clear(m.words)
}
