package cpu

const (
	MEMORY_SIZE = 1 << 16 // Number of addressable words.
)

// Memory is the flat word-addressed LC-3 memory.
// Any 16-bit address is valid, so accesses never fail.
type Memory [MEMORY_SIZE]uint16

// Read returns the word at addr.
func (mem *Memory) Read(addr uint16) uint16 {
	return mem[addr]
}

// Write stores value at addr.
func (mem *Memory) Write(addr uint16, value uint16) {
	mem[addr] = value
}

// Load copies words into memory starting at origin, wrapping at the top of
// the address space.
func (mem *Memory) Load(origin uint16, words []uint16) {
	addr := origin
	for _, word := range words {
		mem[addr] = word
		addr++
	}
}

// Reset zeros all of memory.
func (mem *Memory) Reset() {
	clear(mem[:])
}
