package postgres

import (
	"github.com/go-faster/jx"
)

// JSONB payloads (id sets, restriction lists, order items) are encoded with
// jx rather than encoding/json: the shapes are fixed and the encoder writes
// them without reflection or intermediate structs.

func encodeIDs[T ~string](ids []T) []byte {
	e := &jx.Encoder{}
	e.ArrStart()
	for _, id := range ids {
		e.Str(string(id))
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeIDs[T ~string](data []byte) ([]T, error) {
	var out []T
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, T(s))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
