package bulkscan

import "github.com/UniQw/bulkscan/internal/ledger"

// Status is the label recorded for a resolved task. The string values are
// what appears in the progress file and the output sheet.
type Status = ledger.Status

const (
	// StatusSuccess: the service extracted an identifier.
	StatusSuccess = ledger.StatusSuccess
	// StatusNoImage: the URL was empty or malformed, or the service could not fetch or read the image.
	StatusNoImage = ledger.StatusNoImage
	// StatusFailed: the image was read but nothing could be extracted.
	StatusFailed = ledger.StatusFailed
	// StatusServiceError: the service misbehaved (5xx, bad body) or an unexpected error occurred.
	StatusServiceError = ledger.StatusServiceError
)

// AllStatuses lists every valid status in a stable order.
var AllStatuses = []Status{StatusSuccess, StatusNoImage, StatusFailed, StatusServiceError}

// ParseStatus converts a label into a Status, returning ErrUnknownStatus for unknown values.
func ParseStatus(s string) (Status, error) {
	st, err := ledger.ParseStatus(s)
	if err != nil {
		return "", ErrUnknownStatus
	}
	return st, nil
}

// Extraction method labels as shown in the status column.
const (
	MethodBarcode = "Barcode"
	MethodOCR     = "OCR"
)

// MethodDisplay maps a method tag returned by the service to its display
// label. Unrecognized tags are returned unchanged.
func MethodDisplay(tag string) string {
	switch tag {
	case "barcode":
		return MethodBarcode
	case "ocr":
		return MethodOCR
	default:
		return tag
	}
}
