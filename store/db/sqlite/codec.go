package sqlite

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/batchelor-project/batchelor/store"
)

func marshalKVs(kvs []store.KV) (string, error) {
	if len(kvs) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(kvs)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal kv list")
	}
	return string(b), nil
}

func unmarshalKVs(s string) ([]store.KV, error) {
	var kvs []store.KV
	if s == "" {
		return kvs, nil
	}
	if err := json.Unmarshal([]byte(s), &kvs); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal kv list")
	}
	return kvs, nil
}

func marshalSignals(signals []string) string {
	return strings.Join(signals, ",")
}

func unmarshalSignals(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func toUnixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func nullableMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullableMillis(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return fromUnixMillis(n.Int64)
}
