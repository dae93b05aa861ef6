// Package hash holds the checksums used by the snapshot format.
//
// Headers and blocks are protected with CRC32-Castagnoli, which the
// standard library computes with hardware support on amd64 and arm64.
package hash

import "hash/crc32"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// Verify reports whether data matches sum.
func Verify(data []byte, sum uint32) bool {
	return CRC32C(data) == sum
}
