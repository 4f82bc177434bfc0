package hash

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

func GenHashMurMur(key []byte) uint32 {
	h := murmur3.New128()
	h.Write(key)

	hash := h.Sum(nil)

	return binary.LittleEndian.Uint32(hash)
}

// HashPageKey hashes the (table, key) pair. a zero byte separates the two
// parts so that ("ab","c") and ("a","bc") are different inputs
func HashPageKey(table string, key string) uint32 {
	buf := make([]byte, 0, len(table)+len(key)+1)
	buf = append(buf, table...)
	buf = append(buf, 0)
	buf = append(buf, key...)
	return GenHashMurMur(buf)
}
