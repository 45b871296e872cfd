// Package screen renders the 64x16 text display held in video RAM.
package screen

import (
	"strings"

	"github.com/valerio/go-xray/xray/addr"
)

// Placeholder is shown for character codes with no printable equivalent.
const Placeholder = '·'

// Reader is the subset of the memory image the screen needs.
type Reader interface {
	At(address uint16) uint8
}

// control characters 0x00-0x1F on the Model III character generator.
var lowSymbols = []rune(" £|éÜÅ¬öØùñ`ā·ÄÃÑÖØÕßüõæäàȧ·ÉÆÇ˜")

// symbols 0xC0-0xFF.
var highSymbols = []rune("♠♥♦♣☺☹≤≥αβγδεζηθικμνξοπρςστυφχψωΩ√÷∑≈∆⌇≠⌁·⍾∞✓§⌘©¤¶¢®···℞℅♂♀····⌂")

// Glyph maps a video RAM byte to a terminal rune.
func Glyph(b uint8) rune {
	switch {
	case b < 0x20:
		return lowSymbols[b]
	case b < 0x7F:
		return rune(b)
	case b == 0x7F:
		return '±'
	case b < 0xC0:
		return block(b & 0x3F)
	default:
		return highSymbols[b-0xC0]
	}
}

// IsGraphic reports whether b is one of the 2x3 block graphics characters.
func IsGraphic(b uint8) bool {
	return b >= 0x80 && b < 0xC0
}

// block maps a 2x3 pixel pattern to the matching Unicode sextant. Bit 0 is
// the top left pixel, bit 5 the bottom right, which is the same order the
// sextant block is encoded in.
func block(pattern uint8) rune {
	switch pattern {
	case 0:
		return ' '
	case 0x15:
		return '▌'
	case 0x2A:
		return '▐'
	case 0x3F:
		return '█'
	}

	offset := rune(pattern) - 1
	if pattern > 0x15 {
		offset--
	}
	if pattern > 0x2A {
		offset--
	}
	return 0x1FB00 + offset
}

// Rows returns the screen contents, one string per text row.
func Rows(mem Reader) []string {
	rows := make([]string, addr.ScreenRows)
	var sb strings.Builder
	for y := 0; y < addr.ScreenRows; y++ {
		sb.Reset()
		for x := 0; x < addr.ScreenColumns; x++ {
			sb.WriteRune(Glyph(mem.At(Position(x, y))))
		}
		rows[y] = sb.String()
	}
	return rows
}

// Position returns the video RAM address of the character at column x, row y.
func Position(x, y int) uint16 {
	return addr.VideoStart + uint16(y*addr.ScreenColumns+x)
}

// Cell returns the column and row shown at a video RAM address.
func Cell(address uint16) (x, y int, ok bool) {
	if !addr.IsVideo(address) {
		return 0, 0, false
	}
	offset := int(address - addr.VideoStart)
	return offset % addr.ScreenColumns, offset / addr.ScreenColumns, true
}
