package segment

// Bitmap records segment completion for resume: one bit per segment index,
// LSB of byte 0 is segment 0. Serializes to a compact blob for the job store.
type Bitmap struct {
	bits []byte
}

func NewBitmap(count int) *Bitmap {
	return &Bitmap{bits: make([]byte, (count+7)/8)}
}

// BitmapFromBytes restores a bitmap from a stored blob. Extra bytes are
// ignored; missing bytes are treated as incomplete segments.
func BitmapFromBytes(blob []byte, count int) *Bitmap {
	size := (count + 7) / 8
	bits := make([]byte, size)
	copy(bits, blob)
	return &Bitmap{bits: bits}
}

// Bytes serializes exactly the bytes needed for count segments.
func (b *Bitmap) Bytes(count int) []byte {
	size := (count + 7) / 8
	if size > len(b.bits) {
		size = len(b.bits)
	}
	out := make([]byte, size)
	copy(out, b.bits[:size])
	return out
}

func (b *Bitmap) SetComplete(index int) {
	byteIdx := index / 8
	if byteIdx >= len(b.bits) {
		grown := make([]byte, byteIdx+1)
		copy(grown, b.bits)
		b.bits = grown
	}
	b.bits[byteIdx] |= 1 << (index % 8)
}

func (b *Bitmap) IsComplete(index int) bool {
	byteIdx := index / 8
	if byteIdx >= len(b.bits) {
		return false
	}
	return b.bits[byteIdx]&(1<<(index%8)) != 0
}

func (b *Bitmap) AllComplete(count int) bool {
	for i := 0; i < count; i++ {
		if !b.IsComplete(i) {
			return false
		}
	}
	return true
}

func (b *Bitmap) CountComplete(count int) int {
	done := 0
	for i := 0; i < count; i++ {
		if b.IsComplete(i) {
			done++
		}
	}
	return done
}
