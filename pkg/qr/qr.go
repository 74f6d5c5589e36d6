// Package qr renders exchange payloads as QR code PNGs and reads them back
// from uploaded images.
package qr

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	qrgen "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyPayload = errors.New("empty qr payload")
	ErrEncode       = errors.New("failed to encode QR code")
	ErrDecode       = errors.New("failed to decode QR code")
	ErrInvalidSize  = errors.New("invalid QR code size")
)

const (
	DefaultSize = 256
	MaxSize     = 4096
)

// Render encodes payload at the highest error-correction level. A size of
// zero or less selects DefaultSize.
func Render(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		return nil, ErrInvalidSize
	}

	code, err := qrgen.New(payload, qrgen.Highest)
	if err != nil {
		return nil, errors.Join(ErrEncode, err)
	}
	png, err := code.PNG(size)
	if err != nil {
		return nil, errors.Join(ErrEncode, err)
	}
	return png, nil
}

// Scan decodes the first QR code found in a PNG or JPEG image.
func Scan(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrDecode
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", errors.Join(ErrDecode, err)
	}
	return ScanImage(img)
}

func ScanImage(img image.Image) (string, error) {
	if img == nil {
		return "", ErrDecode
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", errors.Join(ErrDecode, err)
	}
	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", errors.Join(ErrDecode, err)
	}
	return result.GetText(), nil
}
