package qr

import (
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// Decoder extracts the raw text payload from a QR image.
type Decoder interface {
	Decode(img image.Image) (string, error)
}

// ZXingDecoder decodes QR codes with the gozxing port of the ZXing engine.
type ZXingDecoder struct{}

func NewZXingDecoder() *ZXingDecoder {
	return &ZXingDecoder{}
}

func (d *ZXingDecoder) Decode(img image.Image) (string, error) {
	bitmap, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to binarize image: %w", err)
	}

	result, err := qrcode.NewQRCodeReader().Decode(bitmap, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decode qr code: %w", err)
	}
	return result.GetText(), nil
}
