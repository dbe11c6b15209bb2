package qoi

import (
	"encoding/binary"
	"io"
	"math"
)

// Debug helper: dumps a decoded pixel buffer as an uncompressed 32-bit BMP
// so results can be eyeballed in any image viewer. Not part of the codec.

// PixelFormat tags the layout of a raw pixel buffer handed to WriteBMP.
// The Srgb variants apply a gamma 1/2.2 transfer to the color channels so
// linear buffers display correctly.
type PixelFormat uint8

const (
	FormatRGB8 PixelFormat = iota
	FormatRGB8Srgb
	FormatRGBA8
	FormatRGBA8Srgb
	FormatBGRA8
	FormatBGRA8Srgb
)

// stride returns the input bytes per pixel for the format.
func (f PixelFormat) stride() int {
	if f == FormatRGB8 || f == FormatRGB8Srgb {
		return 3
	}
	return 4
}

const bmpHeaderSize = 54

// WriteBMP writes pixels as a 32bpp BMP. The buffer must hold exactly
// width*height pixels at the format's stride, in top-to-bottom row order;
// BMP stores rows bottom-up, so the buffer is flushed in reverse.
func WriteBMP(w io.Writer, width, height uint32, format PixelFormat, pixels []byte) error {
	data := make([]byte, bmpHeaderSize, bmpHeaderSize+int(width)*int(height)*4)
	putBMPHeader(data, width, height)

	stride := format.stride()
	rowLen := int(width) * stride
	var row [4]byte
	for y := int(height) - 1; y >= 0; y-- {
		line := pixels[y*rowLen : (y+1)*rowLen]
		for x := 0; x < int(width); x++ {
			src := line[x*stride:]
			switch format {
			case FormatRGB8:
				row = [4]byte{src[2], src[1], src[0], 255}
			case FormatRGB8Srgb:
				row = [4]byte{srgb(src[2]), srgb(src[1]), srgb(src[0]), 255}
			case FormatRGBA8:
				row = [4]byte{src[2], src[1], src[0], src[3]}
			case FormatRGBA8Srgb:
				row = [4]byte{srgb(src[2]), srgb(src[1]), srgb(src[0]), src[3]}
			case FormatBGRA8:
				row = [4]byte{src[0], src[1], src[2], src[3]}
			case FormatBGRA8Srgb:
				row = [4]byte{srgb(src[0]), srgb(src[1]), srgb(src[2]), src[3]}
			}
			data = append(data, row[:]...)
		}
	}
	_, err := w.Write(data)
	return err
}

func putBMPHeader(data []byte, width, height uint32) {
	le := binary.LittleEndian
	copy(data[0:2], "BM")
	le.PutUint32(data[2:6], width*4*height+bmpHeaderSize) // file size
	le.PutUint32(data[10:14], bmpHeaderSize)              // pixel data offset
	le.PutUint32(data[14:18], 40)                         // BITMAPINFOHEADER size
	le.PutUint32(data[18:22], width)
	le.PutUint32(data[22:26], height)
	le.PutUint16(data[26:28], 1)     // planes
	le.PutUint16(data[28:30], 32)    // bits per pixel
	le.PutUint32(data[38:42], 2835)  // X pixels per meter (~72 ppi)
	le.PutUint32(data[42:46], 2835)  // Y pixels per meter
}

// srgb applies the 1/2.2 gamma transfer to a single linear channel value.
func srgb(v byte) byte {
	f := math.Pow(float64(v)/255, 1/2.2)
	return byte(math.Floor(f * 255))
}
