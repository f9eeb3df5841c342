package imggen

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTicketQR(t *testing.T) {
	data, err := GenerateTicketQR("0b7c4b0e-5d7a-4e43-9d0c-2f1d8f3c9a11", 200)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	_, err = GenerateTicketQR("", 0)
	assert.Error(t, err)
}

func TestTicketQRContent(t *testing.T) {
	assert.Equal(t, "sakura-lottery://ticket/abc", TicketQRContent("abc"))
}
