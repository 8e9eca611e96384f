package postgres

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/batchelor-project/batchelor/store"
)

func marshalKVs(kvs []store.KV) ([]byte, error) {
	if len(kvs) == 0 {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(kvs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal kv list")
	}
	return b, nil
}

func unmarshalKVs(b []byte) ([]store.KV, error) {
	var kvs []store.KV
	if len(b) == 0 {
		return kvs, nil
	}
	if err := json.Unmarshal(b, &kvs); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal kv list")
	}
	return kvs, nil
}
