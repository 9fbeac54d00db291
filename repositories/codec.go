package repositories

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Values are stored as CBOR with core deterministic encoding, so the same
// record always produces the same bytes on disk.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("repositories: cbor encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("repositories: cbor decoder initialization failed: " + err.Error())
	}
}

func marshal(v any) ([]byte, error) {
	bytes, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal failed: %w", err)
	}
	return bytes, nil
}

func unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal failed: %w", err)
	}
	return nil
}
