package store

import (
	"hash/crc32"
	"strconv"
)

// Fingerprint computes the dedup checksum over settings++metrics in
// submission order (spec §3 I6, §8 "Dedup fingerprint stability"). Condition
// and priority never enter the checksum: two submissions that differ only in
// those fields collapse onto the same live task.
func Fingerprint(settings, metrics []KV) uint32 {
	h := crc32.NewIEEE()
	writeKVs(h, settings)
	writeKVs(h, metrics)
	return h.Sum32()
}

func writeKVs(h interface{ Write([]byte) (int, error) }, kvs []KV) {
	buf := make([]byte, 0, 64)
	buf = strconv.AppendInt(buf, int64(len(kvs)), 10)
	buf = append(buf, 0)
	_, _ = h.Write(buf)
	for _, kv := range kvs {
		_, _ = h.Write([]byte(kv.Key))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(kv.Value))
		_, _ = h.Write([]byte{0})
	}
}
