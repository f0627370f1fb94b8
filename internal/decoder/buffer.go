package decoder

// buffer holds the unconsumed suffix of all bytes fed to the decoder.
// Consumed bytes stay in place until the consumed prefix is at least as long
// as the remainder, then the remainder is moved to the front.
type buffer struct {
	data []byte
	off  int
}

func (b *buffer) append(p []byte) {
	b.compact()
	b.data = append(b.data, p...)
}

// unread returns the unconsumed bytes. The slice is only valid until the
// next append.
func (b *buffer) unread() []byte {
	return b.data[b.off:]
}

func (b *buffer) consume(n int) {
	b.off += n
	if b.off == len(b.data) {
		b.data = b.data[:0]
		b.off = 0
	}
}

func (b *buffer) compact() {
	if b.off == 0 || b.off < len(b.data)-b.off {
		return
	}
	n := copy(b.data, b.data[b.off:])
	b.data = b.data[:n]
	b.off = 0
}

func (b *buffer) len() int {
	return len(b.data) - b.off
}
