// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// EncodedPicture is an embedded image kept in its stored encoding. The
// bytes are either held in Data or read by Load when the picture is
// decoded, so a picture that cannot be read only fails its own decode.
type EncodedPicture struct {
	// Name identifies the picture inside its container (a zip entry, a PDF
	// object number) for diagnostics.
	Name string
	Data []byte
	Load func() ([]byte, error)
}

// unreadablePicture is a picture whose decode reports err.
func unreadablePicture(name string, err error) Picture {
	return EncodedPicture{Name: name, Load: func() ([]byte, error) { return nil, err }}
}

// Decode reads the stored bytes, if not yet loaded, and decodes them with
// any registered image format.
func (p EncodedPicture) Decode() (image.Image, error) {
	if p.Data == nil && p.Load != nil {
		data, err := p.Load()
		if err != nil {
			return nil, fmt.Errorf("picture %s: %w", p.Name, err)
		}
		p.Data = data
	}
	if len(p.Data) == 0 {
		return nil, fmt.Errorf("picture %s: empty data", p.Name)
	}
	img, _, err := image.Decode(bytes.NewReader(p.Data))
	if err != nil {
		return nil, fmt.Errorf("picture %s: %w", p.Name, err)
	}
	return img, nil
}
