package bulkscan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatus_Labels(t *testing.T) {
	require.Equal(t, "Success", string(StatusSuccess))
	require.Equal(t, "No Image", string(StatusNoImage))
	require.Equal(t, "Failed", string(StatusFailed))
	require.Equal(t, "API Error", string(StatusServiceError))
}

func TestParseStatus(t *testing.T) {
	for _, s := range AllStatuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
	_, err := ParseStatus("weird")
	require.ErrorIs(t, err, ErrUnknownStatus)
}

func TestMethodDisplay(t *testing.T) {
	require.Equal(t, "Barcode", MethodDisplay("barcode"))
	require.Equal(t, "OCR", MethodDisplay("ocr"))
	require.Equal(t, "qr", MethodDisplay("qr"))
	require.Equal(t, "", MethodDisplay(""))
}
