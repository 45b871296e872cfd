package addr

// Address space of the system under test.
const (
	// Space is the number of addressable bytes.
	Space = 0x10000
	// Max is the highest valid address.
	Max uint16 = 0xFFFF
	// Reset is where the Z80 starts executing after a reset.
	Reset uint16 = 0x0000
)

// TRS-80 memory map
// Reference: http://www.trs-80.com/wordpress/zaps-patches-pokes-tips/memory-map/
const (
	// ROM range (Model I/III level II BASIC).
	ROMStart uint16 = 0x0000
	ROMEnd   uint16 = 0x2FFF

	// Memory mapped I/O.
	DiskDriveSelect uint16 = 0x37E1
	PrinterStatus   uint16 = 0x37E8
	DiskCommand     uint16 = 0x37EC
	DiskData        uint16 = 0x37EF
	KeyboardStart   uint16 = 0x3800
	KeyboardEnd     uint16 = 0x3840

	// Video RAM, 64 columns by 16 rows of characters.
	VideoStart uint16 = 0x3C00
	VideoEnd   uint16 = 0x3FFF

	// RAM starts right after video memory.
	RAMStart uint16 = 0x4000
)

const (
	ScreenColumns = 64
	ScreenRows    = 16
	// VideoSize is the number of bytes in the video RAM range.
	VideoSize = int(VideoEnd-VideoStart) + 1
)

// IsVideo reports whether the address belongs to video RAM.
func IsVideo(a uint16) bool {
	return a >= VideoStart && a <= VideoEnd
}
