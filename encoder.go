package bulkscan

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Encoder serializes classification request bodies and deserializes the
// service's responses.
type Encoder interface {
	Encode(any) ([]byte, error)
	Decode([]byte, any) error
}

// JSONEncoder is the default Encoder. Requests are small and built with the
// standard library; responses are decoded with sonic.
type JSONEncoder struct{}

func (*JSONEncoder) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (*JSONEncoder) Decode(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// request is the body posted to the classification endpoint.
type request struct {
	URL string `json:"url"`
}

// response is the body returned by the classification endpoint.
type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		SerialNumber string `json:"serial_number"`
		Method       string `json:"method"`
	} `json:"data"`
}
