package perception

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veritas-qa/veritas-core/api/schemas"
)

func encodePNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeBase64Image(t *testing.T) {
	encoded := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 16, 16)))

	img, err := DecodeBase64Image(encoded)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 16, img.Bounds().Dy())
}

func TestDecodeBase64ImageRejectsBadBase64(t *testing.T) {
	_, err := DecodeBase64Image("!!! not base64 !!!")
	assert.ErrorIs(t, err, schemas.ErrDecode)
}

func TestDecodeBase64ImageRejectsNonImageBytes(t *testing.T) {
	garbage := base64.StdEncoding.EncodeToString([]byte("definitely not a PNG"))
	_, err := DecodeBase64Image(garbage)
	assert.ErrorIs(t, err, schemas.ErrDecode)
}
