package qoi

import (
	"bufio"
	"io"
	"os"
)

// Convenience wrappers over files. Thin glue around Decode/Encode.

// DecodeFile decodes the QOI file at path, writing pixel bytes to w.
func DecodeFile(path string, w io.Writer) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f), w)
}

// DecodeFileBytes decodes the QOI file at path into a flat pixel buffer.
func DecodeFileBytes(path string) ([]byte, Header, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Header{}, err
	}
	return DecodeBytes(data)
}

// EncodeFile encodes a flat pixel buffer into a QOI file at path.
func EncodeFile(path string, h Header, pixels []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := EncodeBytes(w, h, pixels); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
