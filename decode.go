package qoi

import (
	"bytes"
	"io"
)

// Decode fully decodes a QOI stream from r, writing raw pixel bytes to w
// (3 or 4 bytes per pixel, per the stream's channel count) and returning the
// stream header. It reads exactly up to the end marker and never past it, so
// callers who want buffering should wrap r themselves. Any short read aborts
// the pass with the underlying I/O error; there is no partial result.
func Decode(r io.Reader, w io.Writer) (Header, error) {
	header, err := DecodeHeader(r)
	if err != nil {
		return Header{}, err
	}
	d := newDecoder(header)
	total := header.pixels()
	for d.count < total {
		if err := d.decodeChunk(r, w); err != nil {
			return Header{}, err
		}
	}
	if err := d.verifyEndMarker(r); err != nil {
		return Header{}, err
	}
	return header, nil
}

// DecodeBytes decodes an in-memory QOI stream into a flat pixel buffer.
func DecodeBytes(data []byte) ([]byte, Header, error) {
	var out bytes.Buffer
	header, err := Decode(bytes.NewReader(data), &out)
	if err != nil {
		return nil, Header{}, err
	}
	return out.Bytes(), header, nil
}

// decoder holds the running state of one decode pass. Every pass owns a
// fresh instance; nothing carries over between streams.
type decoder struct {
	header Header
	cache  [64]pixel
	prev   pixel
	count  int
}

func newDecoder(h Header) *decoder {
	return &decoder{header: h, prev: startPixel}
}

// decodeChunk reads one chunk and emits the pixel(s) it produces. The two
// literal opcodes are matched exactly; everything else dispatches on the two
// most significant bits.
func (d *decoder) decodeChunk(r io.Reader, w io.Writer) error {
	b0, err := readByte(r)
	if err != nil {
		return err
	}
	var cur pixel
	switch {
	case b0 == opRGB:
		var rgb [3]byte
		if _, err := io.ReadFull(r, rgb[:]); err != nil {
			return err
		}
		// Alpha carries over from the previous pixel.
		cur = pixel{rgb[0], rgb[1], rgb[2], d.prev[3]}

	case b0 == opRGBA:
		if _, err := io.ReadFull(r, cur[:]); err != nil {
			return err
		}

	case b0&opMask == opIndex:
		cur = d.cache[b0&mask6]

	case b0&opMask == opDiff:
		// Three 2-bit deltas, each biased by 2. Byte arithmetic gives the
		// required 8-bit wraparound for free.
		cur = pixel{
			d.prev[0] + (b0>>4&0b11 - 2),
			d.prev[1] + (b0>>2&0b11 - 2),
			d.prev[2] + (b0&0b11 - 2),
			d.prev[3],
		}

	case b0&opMask == opLuma:
		b1, err := readByte(r)
		if err != nil {
			return err
		}
		dg := b0&mask6 - 32
		cur = pixel{
			d.prev[0] + dg + (b1>>4 - 8),
			d.prev[1] + dg,
			d.prev[2] + dg + (b1&0b1111 - 8),
			d.prev[3],
		}

	default: // OP_RUN
		// A run repeats the previous pixel, so the previous-pixel state is
		// already correct; only its cache slot is refreshed.
		run := int(b0&mask6) + 1
		if err := d.emit(w, d.prev, run); err != nil {
			return err
		}
		d.cache[hashPixel(d.prev)] = d.prev
		d.count += run
		return nil
	}
	d.cache[hashPixel(cur)] = cur
	d.prev = cur
	d.count++
	return d.emit(w, cur, 1)
}

// emit writes p to the output n times, dropping the alpha byte for
// 3-channel streams.
func (d *decoder) emit(w io.Writer, p pixel, n int) error {
	for ; n > 0; n-- {
		if _, err := w.Write(p[:d.header.Channels]); err != nil {
			return err
		}
	}
	return nil
}

// verifyEndMarker reads the trailing 8 bytes and checks them against the
// fixed end-of-stream sequence.
func (d *decoder) verifyEndMarker(r io.Reader) error {
	var trailer [8]byte
	if _, err := io.ReadFull(r, trailer[:]); err != nil {
		return err
	}
	if trailer != endMarker {
		return ErrInvalidEndMarker
	}
	return nil
}
