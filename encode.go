package qoi

import (
	"bytes"
	"io"
)

// Encode writes the header for h followed by the chunk stream for pixels
// read from src, then the end marker. src yields 3- or 4-byte pixels per
// h.Channels; 3-channel pixels are widened internally with alpha 255.
// Exactly Width*Height pixels are consumed, and a pixel source that runs
// short surfaces as the underlying I/O error.
func Encode(w io.Writer, h Header, src io.Reader) error {
	if err := WriteHeader(w, h); err != nil {
		return err
	}
	e := newEncoder(h, w)
	total := h.pixels()
	for e.count < total {
		if err := e.encodeChunk(src); err != nil {
			return err
		}
	}
	return e.finish()
}

// EncodeBytes encodes a flat pixel buffer (stride per h.Channels) into w.
func EncodeBytes(w io.Writer, h Header, pixels []byte) error {
	return Encode(w, h, bytes.NewReader(pixels))
}

// encoder holds the running state of one encode pass. It mirrors the
// decoder state exactly so both sides stay in lockstep; the two must never
// share an instance.
type encoder struct {
	header Header
	out    io.Writer
	cache  [64]pixel
	prev   pixel
	count  int

	// One pixel of lookahead, filled when run detection reads past the
	// end of a run.
	peek   pixel
	peeked bool
}

func newEncoder(h Header, w io.Writer) *encoder {
	return &encoder{header: h, out: w, prev: startPixel}
}

// encodeChunk consumes at least one pixel from src and emits the cheapest
// chunk that can express it. The attempt order is part of the format
// contract: run, then alpha change, then index, diff, luma, literal RGB.
func (e *encoder) encodeChunk(src io.Reader) error {
	p, err := e.nextPixel(src)
	if err != nil {
		return err
	}
	if p == e.prev {
		return e.writeRun(src)
	}
	var scratch [5]byte
	chunk := scratch[:0]
	if p[3] != e.prev[3] {
		// Every other opcode requires an unchanged alpha.
		chunk = append(chunk, opRGBA, p[0], p[1], p[2], p[3])
	} else if b, ok := e.tryIndex(p); ok {
		chunk = append(chunk, b)
	} else if b, ok := e.tryDiff(p); ok {
		chunk = append(chunk, b)
	} else if b, ok := e.tryLuma(p); ok {
		chunk = append(chunk, b[0], b[1])
	} else if p[3] == e.prev[3] {
		chunk = append(chunk, opRGB, p[0], p[1], p[2])
	} else {
		// Unreachable: an unchanged alpha always admits OP_RGB. Kept as
		// the universal fallback, since OP_RGBA can express any pixel.
		chunk = append(chunk, opRGBA, p[0], p[1], p[2], p[3])
	}
	if _, err := e.out.Write(chunk); err != nil {
		return err
	}
	e.cache[hashPixel(p)] = p
	e.prev = p
	e.count++
	return nil
}

// writeRun greedily extends a run of the previous pixel, up to 62 pixels or
// the end of the image, whichever comes first. The pixel that breaks the
// run is stashed for the next chunk.
func (e *encoder) writeRun(src io.Reader) error {
	total := e.header.pixels()
	run := 1
	for run < maxRun && e.count+run < total {
		p, err := e.readPixel(src)
		if err != nil {
			return err
		}
		if p != e.prev {
			e.peek, e.peeked = p, true
			break
		}
		run++
	}
	if err := writeByte(e.out, opRun|byte(run-1)); err != nil {
		return err
	}
	// The run repeats the previous pixel, so only its cache slot needs a
	// refresh; the previous-pixel state is already correct.
	e.cache[hashPixel(e.prev)] = e.prev
	e.count += run
	return nil
}

// tryIndex emits a cache reference if the pixel's slot already holds
// exactly this pixel.
func (e *encoder) tryIndex(p pixel) (byte, bool) {
	i := hashPixel(p)
	if e.cache[i] != p {
		return 0, false
	}
	// i < 64, so the 2-bit opcode is always 00.
	return opIndex | byte(i), true
}

// tryDiff emits a one-byte chunk when every channel moved by -2..1
// (8-bit wraparound subtraction, reinterpreted as signed).
func (e *encoder) tryDiff(p pixel) (byte, bool) {
	dr := int8(p[0] - e.prev[0])
	dg := int8(p[1] - e.prev[1])
	db := int8(p[2] - e.prev[2])
	if dr < -2 || dr > 1 || dg < -2 || dg > 1 || db < -2 || db > 1 {
		return 0, false
	}
	return opDiff | byte(dr+2)<<4 | byte(dg+2)<<2 | byte(db+2), true
}

// tryLuma emits a two-byte chunk when the green delta fits -32..31 and the
// red/blue deltas, taken relative to green, fit -8..7.
func (e *encoder) tryLuma(p pixel) ([2]byte, bool) {
	dr := int8(p[0] - e.prev[0])
	dg := int8(p[1] - e.prev[1])
	db := int8(p[2] - e.prev[2])
	drdg := int(dr) - int(dg)
	dbdg := int(db) - int(dg)
	if dg < -32 || dg > 31 || drdg < -8 || drdg > 7 || dbdg < -8 || dbdg > 7 {
		return [2]byte{}, false
	}
	return [2]byte{opLuma | byte(dg+32), byte(drdg+8)<<4 | byte(dbdg+8)}, true
}

// nextPixel returns the stashed lookahead pixel if there is one, otherwise
// reads the next pixel from src.
func (e *encoder) nextPixel(src io.Reader) (pixel, error) {
	if e.peeked {
		e.peeked = false
		return e.peek, nil
	}
	return e.readPixel(src)
}

// readPixel reads one pixel at the header's stride,
// widening 3-channel input with alpha 255.
func (e *encoder) readPixel(src io.Reader) (pixel, error) {
	p := pixel{0, 0, 0, 255}
	if _, err := io.ReadFull(src, p[:e.header.Channels]); err != nil {
		return pixel{}, err
	}
	return p, nil
}

// finish appends the fixed 8-byte end marker.
func (e *encoder) finish() error {
	_, err := e.out.Write(endMarker[:])
	return err
}
