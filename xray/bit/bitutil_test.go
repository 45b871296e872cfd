package bit

import (
	"testing"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		high, low uint8
		expected  uint16
	}{
		{0xAB, 0xCD, 0xABCD},
		{0x00, 0x00, 0x0000},
		{0xFF, 0xFF, 0xFFFF},
		{0x3C, 0x00, 0x3C00},
	}

	for _, tt := range tests {
		result := Combine(tt.high, tt.low)
		if result != tt.expected {
			t.Errorf("Combine(%X, %X) = %X; want %X", tt.high, tt.low, result, tt.expected)
		}
	}
}

func TestHighLow(t *testing.T) {
	tests := []struct {
		value     uint16
		high, low uint8
	}{
		{0x1234, 0x12, 0x34},
		{0xFF00, 0xFF, 0x00},
		{0x00FF, 0x00, 0xFF},
	}

	for _, tt := range tests {
		if got := High(tt.value); got != tt.high {
			t.Errorf("High(%X) = %X; want %X", tt.value, got, tt.high)
		}
		if got := Low(tt.value); got != tt.low {
			t.Errorf("Low(%X) = %X; want %X", tt.value, got, tt.low)
		}
	}
}

func TestExtractBits(t *testing.T) {
	tests := []struct {
		value           uint8
		highBit, lowBit uint8
		expected        uint8
	}{
		{0b11010110, 6, 4, 0b101},
		{0b11000000, 7, 6, 0b11},
		{0b00111000, 5, 3, 0b111},
		{0b00000111, 2, 0, 0b111},
	}

	for _, tt := range tests {
		result := ExtractBits(tt.value, tt.highBit, tt.lowBit)
		if result != tt.expected {
			t.Errorf("ExtractBits(%08b, %d, %d) = %03b; want %03b", tt.value, tt.highBit, tt.lowBit, result, tt.expected)
		}
	}
}

func TestSignExtend(t *testing.T) {
	tests := []struct {
		value    uint8
		expected int
	}{
		{0x00, 0},
		{0x7F, 127},
		{0x80, -128},
		{0xFE, -2},
	}

	for _, tt := range tests {
		if got := SignExtend(tt.value); got != tt.expected {
			t.Errorf("SignExtend(%X) = %d; want %d", tt.value, got, tt.expected)
		}
	}
}

func TestIsSet(t *testing.T) {
	if !IsSet(7, 0x80) {
		t.Errorf("IsSet(7, 0x80) = false; want true")
	}
	if IsSet(0, 0x80) {
		t.Errorf("IsSet(0, 0x80) = true; want false")
	}
}
