// Package snapshot persists the leaf rows of a model's cell index.
//
// A snapshot file is a 32-byte header followed by a sequence of blocks:
//
//	header: magic "OCT1" | version u16 | compression u8 | reserved u8 |
//	        rows u64 | blocks u32 | rows per block u32 | reserved u32 | crc32c u32
//	block:  raw length u32 | stored length u32 | crc32c u32 | payload
//
// A block payload holds up to rows-per-block rows of 24 bytes each: the cell
// address followed by the high and low halves of the element identity, all
// little-endian. A stored length of zero means the payload is kept
// uncompressed. The block checksum covers the uncompressed rows.
//
// A Repository keeps one file per saved version under models/<id>/ and a
// CURRENT pointer naming the latest one. The pointer is written only after the
// file is complete, so readers never observe a partial snapshot.
package snapshot
