package cpu

const (
	ARENA_TRAP_TABLE = 0x0000 // Trap vector table.
	ARENA_INT_TABLE  = 0x0100 // Interrupt vector table.
	ARENA_SUPERVISOR = 0x0200 // Operating system and supervisor stack.
	ARENA_USER       = 0x3000 // User programs.
	ARENA_DEVICE     = 0xfe00 // Device register addresses.
)

const (
	PC_START = ARENA_USER // Default program entry point.
)
