package bits

import "testing"

func TestBit(t *testing.T) {
	tests := []struct {
		n        uint
		expected byte
	}{
		{1, 0x01}, {5, 0x10}, {6, 0x20}, {8, 0x80},
		{0, 0x00}, {9, 0x00}, // out of range
	}

	for _, tt := range tests {
		if res := Bit(tt.n); res != tt.expected {
			t.Errorf("Bit(%d) = 0x%02X; want 0x%02X", tt.n, res, tt.expected)
		}
	}
}

func TestIsSet(t *testing.T) {
	tag := byte(0xA5) // 1010 0101: context-specific, constructed, number 5
	if !IsSet(tag, 8) {
		t.Error("Bit 8 should be set")
	}
	if IsSet(tag, 7) {
		t.Error("Bit 7 should NOT be set")
	}
	if !IsSet(tag, 6) {
		t.Error("Bit 6 (constructed) should be set")
	}
}

func TestGetRange(t *testing.T) {
	tests := []struct {
		name     string
		input    byte
		high     uint
		low      uint
		expected byte
	}{
		{"Tag class of 0x9F", 0x9F, 8, 7, 2},
		{"Tag number of 0x9F", 0x9F, 5, 1, 31},
		{"Length count of 0x82", 0x82, 7, 1, 2},
		{"Bits 4-3 of 0x0C", 0b0000_1100, 4, 3, 3},
		{"Full Byte", 0xAA, 8, 1, 0xAA},
		{"Inverted range", 0xFF, 1, 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := GetRange(tt.input, tt.high, tt.low); res != tt.expected {
				t.Errorf("GetRange(0x%02X, %d, %d) = %d; want %d", tt.input, tt.high, tt.low, res, tt.expected)
			}
		})
	}
}

func TestSetClear(t *testing.T) {
	b := Set(0, 6)
	if b != 0x20 {
		t.Errorf("Set(0, 6) = 0x%02X; want 0x20", b)
	}
	if b = Clear(0xFF, 8); b != 0x7F {
		t.Errorf("Clear(0xFF, 8) = 0x%02X; want 0x7F", b)
	}
}

func TestPutRange(t *testing.T) {
	tests := []struct {
		name      string
		b         byte
		high, low uint
		v         byte
		want      byte
	}{
		{"Class into empty byte", 0x00, 8, 7, 3, 0xC0},
		{"Replace low 5 bits", 0xBF, 5, 1, 0x02, 0xA2},
		{"Overflowing value is masked", 0x00, 2, 1, 0xFF, 0x03},
		{"Invalid range keeps byte", 0x5A, 9, 1, 0x00, 0x5A},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PutRange(tt.b, tt.high, tt.low, tt.v); got != tt.want {
				t.Errorf("PutRange(0x%02X, %d, %d, 0x%02X) = 0x%02X; want 0x%02X", tt.b, tt.high, tt.low, tt.v, got, tt.want)
			}
		})
	}
}
