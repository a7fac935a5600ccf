package perception

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	// Register the decoders for the formats the command surface accepts.
	_ "image/jpeg"
	_ "image/png"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

// DecodeBase64Image decodes a base64-encoded PNG or JPEG buffer into an
// image. Any failure wraps schemas.ErrDecode; there is no silent fallback to
// a blank canvas.
func DecodeBase64Image(data string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 image data: %v", schemas.ErrDecode, err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported or corrupt image: %v", schemas.ErrDecode, err)
	}

	return img, nil
}
