package qrcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
)

// Symbology names as reported by Decode
const (
	SymbologyQR      = "qr"
	SymbologyCode128 = "code128"
)

// ErrNoCode is returned when a frame contains no readable code
var ErrNoCode = errors.New("no readable code in image")

// DefaultSize is the edge length in pixels of generated codes
const DefaultSize = 320

// Encode renders text as a QR code of size x size pixels
func Encode(text string, size int) (image.Image, error) {
	if size <= 0 {
		size = DefaultSize
	}
	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_CHARACTER_SET: "UTF-8",
	}
	matrix, err := zxqr.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, size, size, hints)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return matrix, nil
}

// EncodePNG renders text as a PNG-encoded QR code
func EncodePNG(text string, size int) ([]byte, error) {
	img, err := Encode(text, size)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads the first code found in img and reports its symbology.
// QR is tried first; Code 128 is read so callers can tell a wrong symbology from an empty frame.
func Decode(img image.Image) (text, symbology string, err error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", "", fmt.Errorf("binarize frame: %w", err)
	}

	if result, err := zxqr.NewQRCodeReader().Decode(bmp, nil); err == nil {
		return result.GetText(), SymbologyQR, nil
	}

	if result, err := oned.NewCode128Reader().Decode(bmp, nil); err == nil {
		return result.GetText(), SymbologyCode128, nil
	}

	return "", "", ErrNoCode
}
