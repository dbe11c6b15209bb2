package main

import (
	"bufio"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/leslie255/qoi"
)

var bmpOut = flag.Bool("bmp", false, "decode to an uncompressed BMP instead of PNG")

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, "Encode: qoi <input-image>\nDecode: qoi [-bmp] <input.qoi>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	inputPath := flag.Arg(0)
	ext := strings.ToLower(filepath.Ext(inputPath))
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))

	// If input is .qoi → decode to PNG (or BMP for debug inspection).
	if ext == ".qoi" {
		outPath := base + ".png"
		if *bmpOut {
			outPath = base + ".bmp"
		}
		if err := decodeQOI(inputPath, outPath, *bmpOut); err != nil {
			fmt.Fprintln(os.Stderr, "decode error:", err)
			os.Exit(1)
		}
		fmt.Printf("Decoded %s → %s\n", inputPath, outPath)
		return
	}

	// Otherwise: encode image → .qoi
	outPath := base + ".qoi"
	if err := encodeToQOI(inputPath, outPath); err != nil {
		fmt.Fprintln(os.Stderr, "encode error:", err)
		os.Exit(1)
	}
	fmt.Printf("Encoded %s → %s\n", inputPath, outPath)
}

func encodeToQOI(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	img, _, err := image.Decode(in)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	if err := qoi.EncodeImage(w, img); err != nil {
		return err
	}
	return w.Flush()
}

func decodeQOI(inPath, outPath string, asBMP bool) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if asBMP {
		pixels, header, err := qoi.DecodeFileBytes(inPath)
		if err != nil {
			return err
		}
		format := qoi.FormatRGBA8
		if header.Channels == qoi.ChannelsRGB {
			format = qoi.FormatRGB8
		}
		return qoi.WriteBMP(out, header.Width, header.Height, format, pixels)
	}

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	img, err := qoi.DecodeImage(bufio.NewReader(in))
	if err != nil {
		return err
	}
	return png.Encode(out, img)
}
