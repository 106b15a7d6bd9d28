package kv

import (
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v4"
)

// encode serializes a record using msgpack and compresses it with snappy.
func encode(record interface{}) ([]byte, error) {
	enc, err := msgpack.Marshal(record)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode record")
	}
	return snappy.Encode(nil, enc), nil
}

// decode decompresses and deserializes a stored value into record.
func decode(enc []byte, record interface{}) error {
	raw, err := snappy.Decode(nil, enc)
	if err != nil {
		return errors.Wrap(err, "could not uncompress record")
	}
	if err := msgpack.Unmarshal(raw, record); err != nil {
		return errors.Wrap(err, "could not decode record")
	}
	return nil
}
