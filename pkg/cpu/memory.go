package cpu

// DataMemory is the CPU's sparse 16-bit address space: an address that has
// never been written reads back as zero, but that read is flagged as an
// uninitialized-read warning rather than an error.
type DataMemory map[uint16]uint16

// Read returns the value stored at addr and whether addr had previously
// been written.
func (m DataMemory) Read(addr uint16) (uint16, bool) {
	v, ok := m[addr]
	return v, ok
}

// Write stores val at addr, creating the entry if it doesn't yet exist.
func (m DataMemory) Write(addr, val uint16) {
	m[addr] = val
}
