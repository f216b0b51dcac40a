// Package flat provides an exhaustive vector index ranked by squared
// Euclidean distance.
//
// Every query scans all rows, so results are exact. Rows are dense and
// ordered: row i is the i-th vector added. There is no removal; replacing
// rows means building a new index.
//
// # Binary Format
//
// All integers are little-endian:
//
//	magic   [4]byte  "DQVI"
//	version uint32   (1)
//	dim     uint32
//	n       uint32
//	rows    n*dim float32
//	crc     uint32   CRC-32 (IEEE) of everything before it
//
// Any deviation (bad magic, unknown version, wrong length, checksum
// mismatch) is reported as domain.ErrIndexCorrupt.
package flat
