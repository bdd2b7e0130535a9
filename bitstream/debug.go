package bitstream

import "strings"

// DebugString renders the written prefix as a space-separated string of
// bit octets, most significant bit first within each byte, with the
// not-yet-written bits of a partial tail byte masked as 'x'. Test- and
// debug-only; never called from a serialize routine.
func (s *Serializer) DebugString() string {
	return debugBitString(s.Buffer(), s.bitOffset)
}

// DebugString renders the bits consumed so far the same way
// Serializer.DebugString does.
func (d *Deserializer) DebugString() string {
	consumed, _ := d.buf.GetUnsignedSlice(0, (d.bitOffset+7)/8)
	return debugBitString(consumed, d.bitOffset)
}

func debugBitString(buf []byte, bitOffset int) string {
	parts := make([]string, len(buf))
	for i, b := range buf {
		parts[i] = byteAsBitString(b)
	}
	out := strings.Join(parts, " ")
	if tail := bitOffset % 8; tail != 0 && len(parts) > 0 {
		fields := strings.Fields(out)
		last := fields[len(fields)-1]
		masked := strings.Repeat("x", 8-tail) + last[8-tail:]
		fields[len(fields)-1] = masked
		out = strings.Join(fields, " ")
	}
	return out
}

func byteAsBitString(x byte) string {
	var b [8]byte
	for i := 0; i < 8; i++ {
		if x&(1<<uint(7-i)) != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b[:])
}
