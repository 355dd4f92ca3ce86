package pattern

import "fmt"

// DefaultCapacity is the size of the DLPC350 pattern LUT.
const DefaultCapacity = 128

// WordSize is the number of bytes each LUT word occupies on the wire.
const WordSize = 3

// Table is the host-side pattern LUT. Insertion order is playback order.
// It holds no device state; uploading is done by the sequencer.
type Table struct {
	entries  []Entry
	capacity int
}

// NewTable creates an empty table bounded by capacity entries.
// A non-positive capacity selects DefaultCapacity.
func NewTable(capacity int) *Table {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Table{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
	}
}

// Capacity returns the maximum number of entries.
func (t *Table) Capacity() int {
	return t.capacity
}

// Len returns the number of staged entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Clear empties the table.
func (t *Table) Clear() {
	t.entries = t.entries[:0]
}

// Add validates and appends an entry, returning its index.
func (t *Table) Add(e Entry) (int, error) {
	if err := e.Validate(); err != nil {
		return -1, err
	}
	if len(t.entries) >= t.capacity {
		return -1, fmt.Errorf("%w: %d entries", ErrCapacityExceeded, t.capacity)
	}
	t.entries = append(t.entries, e)
	return len(t.entries) - 1, nil
}

// Get returns the entry at index.
func (t *Table) Get(index int) (Entry, error) {
	if index < 0 || index >= len(t.entries) {
		return Entry{}, fmt.Errorf("%w: %d (table has %d entries)", ErrIndexOutOfRange, index, len(t.entries))
	}
	return t.entries[index], nil
}

// Entries returns a copy of all staged entries.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Encode serializes the table into the byte stream written to the LUT
// mailbox: one little-endian 24-bit word per entry.
func (t *Table) Encode() []byte {
	return EncodeEntries(t.entries)
}

// EncodeEntries serializes entries as LUT words.
func EncodeEntries(entries []Entry) []byte {
	buf := make([]byte, 0, len(entries)*WordSize)
	for _, e := range entries {
		w := e.Word()
		buf = append(buf, byte(w), byte(w>>8), byte(w>>16))
	}
	return buf
}

// DecodeEntries parses a LUT byte stream. Trailing bytes that do not form a
// whole word are ignored.
func DecodeEntries(data []byte) []Entry {
	n := len(data) / WordSize
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		b := data[i*WordSize : (i+1)*WordSize]
		w := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
		entries = append(entries, EntryFromWord(w))
	}
	return entries
}

// MaxBitDepthOf returns the largest bit depth among entries, or zero.
func MaxBitDepthOf(entries []Entry) uint8 {
	var depth uint8
	for _, e := range entries {
		if e.BitDepth > depth {
			depth = e.BitDepth
		}
	}
	return depth
}
