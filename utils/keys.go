package utils

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// KeyGenerator produces the unique storage key for one chunk. Keys must be
// unique within the destination partition to avoid silent overwrite.
type KeyGenerator func(text string, unitIndex, sequence int) string

// UUIDKeys generates collision-resistant random keys. This is the default:
// safe for concurrent ingestions into the same scope.
func UUIDKeys() KeyGenerator {
	return func(string, int, int) string {
		return uuid.NewString()
	}
}

// ContentHashKeys derives keys from the chunk text plus position, so
// re-ingesting an unchanged document overwrites rather than duplicates.
func ContentHashKeys() KeyGenerator {
	return func(text string, unitIndex, sequence int) string {
		sum := md5.Sum([]byte(fmt.Sprintf("%d:%d:%s", unitIndex, sequence, text)))
		return hex.EncodeToString(sum[:])
	}
}

// SequentialKeys generates prefix-0, prefix-1, ... Useful for deterministic
// tests; not safe across concurrent ingestions into one partition.
func SequentialKeys(prefix string) KeyGenerator {
	var n int64
	return func(string, int, int) string {
		return fmt.Sprintf("%s-%d", prefix, atomic.AddInt64(&n, 1)-1)
	}
}
