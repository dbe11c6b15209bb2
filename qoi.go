// Package qoi implements the QOI ("Quite OK Image") lossless image format:
// a fixed 14-byte header followed by a stream of variable-length chunks,
// each of which reconstructs one or more pixels from the previously decoded
// pixel and a 64-slot cache of recently seen colors.
//
// Decode and Encode work over raw byte streams; DecodeImage and EncodeImage
// bridge to the standard image package.
package qoi

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Magic is the 4-byte signature every QOI stream starts with.
const Magic = "qoif"

// HeaderSize is the encoded size of a Header in bytes.
const HeaderSize = 14

// maxRun is the longest pixel run a single OP_RUN chunk can express.
const maxRun = 62

// endMarker terminates every chunk stream.
var endMarker = [8]byte{0, 0, 0, 0, 0, 0, 0, 1}

// Chunk opcodes. The two literal ops occupy the top of the byte space;
// everything else is dispatched on the two most significant bits.
const (
	opRGB   byte = 0b11111110
	opRGBA  byte = 0b11111111
	opIndex byte = 0b00000000
	opDiff  byte = 0b01000000
	opLuma  byte = 0b10000000
	opRun   byte = 0b11000000

	opMask byte = 0b11000000
	mask6  byte = 0b00111111
)

var (
	ErrInvalidMagic      = errors.New("qoi: invalid magic")
	ErrInvalidChannels   = errors.New("qoi: invalid channel count")
	ErrInvalidColorspace = errors.New("qoi: invalid colorspace")
	ErrInvalidEndMarker  = errors.New("qoi: invalid end marker")
)

// Channels is the number of channels stored in the chunk stream. It controls
// the output stride when decoding and the input stride when encoding; pixels
// are always carried with four channels internally.
type Channels uint8

const (
	ChannelsRGB  Channels = 3
	ChannelsRGBA Channels = 4
)

func channelsFromByte(b byte) (Channels, error) {
	switch b {
	case 3:
		return ChannelsRGB, nil
	case 4:
		return ChannelsRGBA, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidChannels, b)
}

// Colorspace tags how channel values should be interpreted by a consumer.
// It has no effect on encoding or decoding.
type Colorspace uint8

const (
	// ColorspaceSRGB is sRGB with linear alpha.
	ColorspaceSRGB Colorspace = 0
	// ColorspaceLinear has all channels linear.
	ColorspaceLinear Colorspace = 1
)

func colorspaceFromByte(b byte) (Colorspace, error) {
	switch b {
	case 0:
		return ColorspaceSRGB, nil
	case 1:
		return ColorspaceLinear, nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidColorspace, b)
}

// Header describes the pixel data of one QOI stream. It is immutable once
// read and fixes the pixel stride and alpha semantics for the whole stream.
type Header struct {
	Width      uint32
	Height     uint32
	Channels   Channels
	Colorspace Colorspace
}

// pixels returns the total pixel count of the image. Zero-sized images are
// structurally legal and simply carry no chunks.
func (h Header) pixels() int {
	return int(h.Width) * int(h.Height)
}

// DecodeHeader reads and validates the 14-byte preamble. The magic is
// checked before anything else is read.
func DecodeHeader(r io.Reader) (Header, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, err
	}
	if string(magic[:]) != Magic {
		return Header{}, ErrInvalidMagic
	}
	var rest [HeaderSize - 4]byte
	if _, err := io.ReadFull(r, rest[:]); err != nil {
		return Header{}, err
	}
	channels, err := channelsFromByte(rest[8])
	if err != nil {
		return Header{}, err
	}
	colorspace, err := colorspaceFromByte(rest[9])
	if err != nil {
		return Header{}, err
	}
	return Header{
		Width:      binary.BigEndian.Uint32(rest[0:4]),
		Height:     binary.BigEndian.Uint32(rest[4:8]),
		Channels:   channels,
		Colorspace: colorspace,
	}, nil
}

// WriteHeader writes the 14-byte preamble for h. Encoder-side headers are
// well-formed by construction, so no validation happens here.
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	copy(buf[:4], Magic)
	binary.BigEndian.PutUint32(buf[4:8], h.Width)
	binary.BigEndian.PutUint32(buf[8:12], h.Height)
	buf[12] = byte(h.Channels)
	buf[13] = byte(h.Colorspace)
	_, err := w.Write(buf[:])
	return err
}

// pixel is one RGBA pixel. 3-channel streams drop the alpha byte on the
// wire only; in memory alpha is always present (255 for RGB input).
type pixel [4]byte

// startPixel seeds the previous-pixel state of every pass.
var startPixel = pixel{0, 0, 0, 255}

// hashPixel maps a pixel to its cache slot. Collisions overwrite.
func hashPixel(p pixel) int {
	return int((p[0]*3 + p[1]*5 + p[2]*7 + p[3]*11) % 64)
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}
