package qoi

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"io"
)

func init() {
	image.RegisterFormat("qoi", Magic, DecodeImage, DecodeConfig)
}

// DecodeConfig returns the dimensions and color model of a QOI stream
// without decoding any pixel data.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(h.Width),
		Height:     int(h.Height),
	}, nil
}

// DecodeImage decodes a QOI stream into an *image.NRGBA, regardless of the
// stream's channel count.
func DecodeImage(r io.Reader) (image.Image, error) {
	var buf bytes.Buffer
	h, err := Decode(r, &buf)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, int(h.Width), int(h.Height)))
	pix := buf.Bytes()
	switch h.Channels {
	case ChannelsRGBA:
		copy(img.Pix, pix)
	case ChannelsRGB:
		for i, j := 0, 0; i < len(pix); i, j = i+3, j+4 {
			img.Pix[j+0] = pix[i+0]
			img.Pix[j+1] = pix[i+1]
			img.Pix[j+2] = pix[i+2]
			img.Pix[j+3] = 255
		}
	}
	return img, nil
}

// EncodeImage encodes m as a 4-channel sRGB QOI stream.
func EncodeImage(w io.Writer, m image.Image) error {
	img := imageToNRGBA(m)
	h := Header{
		Width:      uint32(img.Rect.Dx()),
		Height:     uint32(img.Rect.Dy()),
		Channels:   ChannelsRGBA,
		Colorspace: ColorspaceSRGB,
	}
	return EncodeBytes(w, h, img.Pix)
}

// imageToNRGBA copies any image into an *image.NRGBA with bounds starting
// at (0,0). QOI stores non-premultiplied alpha, hence NRGBA rather than
// RGBA.
func imageToNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
