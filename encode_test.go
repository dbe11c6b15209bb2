package qoi

import (
	"bytes"
	"image"
	"math/rand"
	"testing"

	xqoi "github.com/xfmoulet/qoi"
)

// encodeBody encodes pixels and returns just the chunk stream, with the
// header and end marker stripped.
func encodeBody(t *testing.T, h Header, pixels []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := EncodeBytes(&buf, h, pixels); err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	data := buf.Bytes()
	if len(data) < HeaderSize+len(endMarker) {
		t.Fatalf("stream too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[len(data)-len(endMarker):], endMarker[:]) {
		t.Fatalf("stream does not end with the end marker")
	}
	return data[HeaderSize : len(data)-len(endMarker)]
}

func TestEncodeChunkSelection(t *testing.T) {
	rgba := func(ps ...[4]byte) []byte {
		flat := make([]byte, 0, len(ps)*4)
		for _, p := range ps {
			flat = append(flat, p[:]...)
		}
		return flat
	}

	for _, tc := range []struct {
		name   string
		pixels []byte
		want   []byte
	}{
		{
			// A repeated pixel always becomes a run, never index/diff/RGB.
			name:   "run_beats_everything",
			pixels: rgba([4]byte{10, 10, 10, 255}, [4]byte{10, 10, 10, 255}),
			want:   []byte{opLuma | byte(10+32), 8<<4 | 8, opRun | 0},
		},
		{
			// The start pixel is (0,0,0,255), so these two are one run.
			name:   "leading_run_of_start_pixel",
			pixels: rgba([4]byte{0, 0, 0, 255}, [4]byte{0, 0, 0, 255}),
			want:   []byte{opRun | 1},
		},
		{
			// Second occurrence of a cached color resolves to its slot,
			// here 53 for (0,0,0,255); the filler sits in slot 33.
			name:   "index_on_reoccurrence",
			pixels: rgba([4]byte{0, 0, 0, 255}, [4]byte{100, 0, 0, 255}, [4]byte{0, 0, 0, 255}),
			want:   []byte{opRun | 0, opRGB, 100, 0, 0, opIndex | 53},
		},
		{
			// dr=-2, dg=-1, db=+1: every delta inside -2..1.
			name:   "diff_at_boundaries",
			pixels: rgba([4]byte{254, 255, 1, 255}),
			want:   []byte{opDiff | 0<<4 | 1<<2 | 3},
		},
		{
			// dr=-3 is out of diff range but fits luma (dg=0, dr-dg=-3).
			name:   "diff_minus_three_falls_to_luma",
			pixels: rgba([4]byte{253, 0, 0, 255}),
			want:   []byte{opLuma | 32, byte(-3+8)<<4 | 8},
		},
		{
			// dr=+2 likewise.
			name:   "diff_plus_two_falls_to_luma",
			pixels: rgba([4]byte{2, 0, 0, 255}),
			want:   []byte{opLuma | 32, byte(2+8)<<4 | 8},
		},
		{
			// dg=31, dr-dg=7, db-dg=7: the exact top of the luma range.
			name:   "luma_at_boundaries",
			pixels: rgba([4]byte{38, 31, 38, 255}),
			want:   []byte{opLuma | 63, 15<<4 | 15},
		},
		{
			// dg=32 no longer fits luma; literal RGB takes over.
			name:   "luma_dg_32_falls_to_rgb",
			pixels: rgba([4]byte{39, 32, 39, 255}),
			want:   []byte{opRGB, 39, 32, 39},
		},
		{
			// Any alpha change forces RGBA, however small the RGB deltas.
			name:   "alpha_change_forces_rgba",
			pixels: rgba([4]byte{0, 0, 0, 254}),
			want:   []byte{opRGBA, 0, 0, 0, 254},
		},
		{
			name: "run_broken_by_next_pixel",
			pixels: rgba(
				[4]byte{0, 0, 0, 255}, [4]byte{0, 0, 0, 255}, [4]byte{5, 5, 5, 255},
			),
			want: []byte{opRun | 1, opLuma | byte(5+32), 8<<4 | 8},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := rgbaHeader(uint32(len(tc.pixels)/4), 1)
			got := encodeBody(t, h, tc.pixels)
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("chunk stream mismatch:\ngot  %08b\nwant %08b", got, tc.want)
			}
		})
	}
}

func TestEncodeRunCapsAt62(t *testing.T) {
	pixels := make([]byte, 100*4)
	for i := 3; i < len(pixels); i += 4 {
		pixels[i] = 255
	}
	got := encodeBody(t, rgbaHeader(100, 1), pixels)
	want := []byte{opRun | 61, opRun | 37}
	if !bytes.Equal(got, want) {
		t.Fatalf("chunk stream mismatch:\ngot  %08b\nwant %08b", got, want)
	}
}

func TestEncodeZeroSized(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeBytes(&buf, rgbaHeader(0, 0), nil); err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}
	want := stream(t, rgbaHeader(0, 0))
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("stream mismatch:\ngot  %v\nwant %v", buf.Bytes(), want)
	}
}

// makeTestPixels generates a pixel buffer that exercises every opcode:
// runs, small deltas, cache revisits and full literals.
func makeTestPixels(n, stride int, seed int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	flat := make([]byte, 0, n*stride)
	cur := [4]byte{0, 0, 0, 255}
	var seen [][4]byte
	for i := 0; i < n; i++ {
		switch r := rng.Intn(10); {
		case r < 3 && i > 0:
			// repeat: leave cur as is
		case r < 7:
			// small drift, occasionally touching alpha
			cur[0] += byte(rng.Intn(5) - 2)
			cur[1] += byte(rng.Intn(5) - 2)
			cur[2] += byte(rng.Intn(5) - 2)
			if stride == 4 && rng.Intn(16) == 0 {
				cur[3] -= byte(rng.Intn(3))
			}
		case r < 9 && len(seen) > 0:
			cur = seen[rng.Intn(len(seen))]
		default:
			cur = [4]byte{byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256)), 255}
			if stride == 4 {
				cur[3] = byte(200 + rng.Intn(56))
			}
			seen = append(seen, cur)
		}
		flat = append(flat, cur[:stride]...)
	}
	return flat
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name   string
		header Header
		seed   int64
	}{
		{name: "rgba_small", header: rgbaHeader(16, 16), seed: 1},
		{name: "rgba_odd_dims", header: rgbaHeader(37, 23), seed: 2},
		{name: "rgba_linear", header: Header{Width: 64, Height: 64, Channels: ChannelsRGBA, Colorspace: ColorspaceLinear}, seed: 3},
		{name: "rgb_small", header: Header{Width: 16, Height: 16, Channels: ChannelsRGB, Colorspace: ColorspaceSRGB}, seed: 4},
		{name: "rgb_wide", header: Header{Width: 256, Height: 3, Channels: ChannelsRGB, Colorspace: ColorspaceSRGB}, seed: 5},
		{name: "rgba_single_pixel", header: rgbaHeader(1, 1), seed: 6},
	} {
		t.Run(tc.name, func(t *testing.T) {
			stride := int(tc.header.Channels)
			pixels := makeTestPixels(tc.header.pixels(), stride, tc.seed)

			var buf bytes.Buffer
			if err := EncodeBytes(&buf, tc.header, pixels); err != nil {
				t.Fatalf("EncodeBytes: %v", err)
			}
			got, header, err := DecodeBytes(buf.Bytes())
			if err != nil {
				t.Fatalf("DecodeBytes: %v", err)
			}
			if header != tc.header {
				t.Fatalf("header mismatch: got %+v want %+v", header, tc.header)
			}
			if !bytes.Equal(got, pixels) {
				t.Fatalf("round trip mismatch (%d pixels)", tc.header.pixels())
			}
		})
	}
}

func TestImageRoundTrip(t *testing.T) {
	src := makeTestImage(48, 32)

	var buf bytes.Buffer
	if err := EncodeImage(&buf, src); err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}
	img, err := DecodeImage(&buf)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	got, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("DecodeImage returned %T, want *image.NRGBA", img)
	}
	if got.Bounds() != src.Bounds() {
		t.Fatalf("bounds mismatch: got %v want %v", got.Bounds(), src.Bounds())
	}
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Fatalf("pixel mismatch after image round trip")
	}
}

// Cross-validation against the reference Go implementation: a stream we
// encode must decode to the same pixels there, and vice versa.
func TestCrossValidateEncode(t *testing.T) {
	src := makeTestImage(64, 48)

	var buf bytes.Buffer
	if err := EncodeImage(&buf, src); err != nil {
		t.Fatalf("EncodeImage: %v", err)
	}
	img, err := xqoi.Decode(&buf)
	if err != nil {
		t.Fatalf("reference decode: %v", err)
	}
	got, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("reference decoder returned %T, want *image.NRGBA", img)
	}
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Fatalf("reference decoder disagrees with our encoder")
	}
}

func TestCrossValidateDecode(t *testing.T) {
	src := makeTestImage(64, 48)

	var buf bytes.Buffer
	if err := xqoi.Encode(&buf, src); err != nil {
		t.Fatalf("reference encode: %v", err)
	}
	img, err := DecodeImage(&buf)
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	got := img.(*image.NRGBA)
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Fatalf("our decoder disagrees with the reference encoder")
	}
}
