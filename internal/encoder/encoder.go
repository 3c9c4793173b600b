// Package encoder renders retrieval routes as scannable QR images.
package encoder

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// ErrEncodingFailed is returned when the payload cannot be rendered, typically because it exceeds capacity.
var ErrEncodingFailed = errors.New("encoding failed")

// Image is a rendered PNG artifact.
type Image struct {
	PNG         []byte
	ContentType string
}

// DataURL returns the image as a data:image/png;base64 URL suitable for <img src>.
func (i Image) DataURL() string {
	return "data:" + i.ContentType + ";base64," + base64.StdEncoding.EncodeToString(i.PNG)
}

// Encoder turns a payload into an image. Implementations must be deterministic.
type Encoder interface {
	Encode(payload string) (Image, error)
}

// QR encodes payloads with medium error correction at a fixed pixel size.
type QR struct {
	size  int
	level qrcode.RecoveryLevel
}

func NewQR(size int) *QR {
	if size <= 0 {
		size = 256
	}
	return &QR{size: size, level: qrcode.Medium}
}

func (q *QR) Encode(payload string) (Image, error) {
	if payload == "" {
		return Image{}, fmt.Errorf("%w: empty payload", ErrEncodingFailed)
	}
	png, err := qrcode.Encode(payload, q.level, q.size)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrEncodingFailed, err)
	}
	return Image{PNG: png, ContentType: "image/png"}, nil
}
