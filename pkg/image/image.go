package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

type Encode func(io.Writer, image.Image) error

func getEncoder(file string) (Encode, error) {
	outputExt := filepath.Ext(file)
	var encode Encode
	switch outputExt {
	case ".png":
		encode = encodePNG
	case ".jpg", ".jpeg":
		encode = func(w io.Writer, m image.Image) error {
			return jpeg.Encode(w, m, &jpeg.Options{Quality: 90})
		}
	default:
		return nil, fmt.Errorf("image: unsupported extension: %s", outputExt)
	}
	return encode, nil
}

// PNG output uses a fixed compression level so equal images encode to equal
// bytes.
func encodePNG(w io.Writer, m image.Image) error {
	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(w, m)
}

// EncodePNG encodes an image to PNG bytes.
func EncodePNG(m image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodePNG(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes an image to a file, the format is chosen by its extension.
func Save(output string, m image.Image) error {
	encode, err := getEncoder(output)
	if err != nil {
		return err
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("image: couldn't create file: %w", err)
	}
	defer f.Close()
	if err := encode(f, m); err != nil {
		return fmt.Errorf("image: couldn't encode %s: %w", output, err)
	}
	return f.Close()
}
