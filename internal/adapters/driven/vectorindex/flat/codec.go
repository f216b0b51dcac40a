package flat

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

const (
	magic   = "DQVI"
	version = 1

	headerSize  = 16
	trailerSize = 4
)

// MarshalBinary encodes the index. See the package documentation for the layout.
func (i *Index) MarshalBinary() ([]byte, error) {
	out := make([]byte, headerSize, headerSize+len(i.rows)*i.dim*4+trailerSize)
	copy(out[0:4], magic)
	binary.LittleEndian.PutUint32(out[4:8], version)
	binary.LittleEndian.PutUint32(out[8:12], uint32(i.dim))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(i.rows)))

	var b [4]byte
	for _, row := range i.rows {
		for _, x := range row {
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(x))
			out = append(out, b[:]...)
		}
	}
	binary.LittleEndian.PutUint32(b[:], crc32.ChecksumIEEE(out))
	return append(out, b[:]...), nil
}

// Unmarshal decodes an index produced by MarshalBinary.
// Every failure wraps domain.ErrIndexCorrupt.
func Unmarshal(data []byte) (*Index, error) {
	if len(data) < headerSize+trailerSize {
		return nil, corrupt("truncated header")
	}
	if string(data[0:4]) != magic {
		return nil, corrupt("bad magic")
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != version {
		return nil, corrupt(fmt.Sprintf("unsupported version %d", v))
	}
	dim32 := binary.LittleEndian.Uint32(data[8:12])
	n32 := binary.LittleEndian.Uint32(data[12:16])
	if dim32 == 0 {
		return nil, corrupt("invalid dimension 0")
	}
	// Both fields fit in 32 bits, so their product cannot overflow 64.
	body := len(data) - headerSize - trailerSize
	if body%4 != 0 || uint64(n32)*uint64(dim32) != uint64(body/4) {
		return nil, corrupt(fmt.Sprintf("expected %d rows of %d, got %d bytes", n32, dim32, body))
	}
	dim, n := int(dim32), int(n32)
	end := len(data) - trailerSize
	if crc32.ChecksumIEEE(data[:end]) != binary.LittleEndian.Uint32(data[end:]) {
		return nil, corrupt("checksum mismatch")
	}

	idx := &Index{dim: dim, rows: make([][]float32, n)}
	off := headerSize
	for r := 0; r < n; r++ {
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
			off += 4
		}
		if !finite(row) {
			return nil, corrupt(fmt.Sprintf("row %d is not finite", r))
		}
		idx.rows[r] = row
	}
	return idx, nil
}

func corrupt(reason string) error {
	return fmt.Errorf("flat: %s: %w", reason, domain.ErrIndexCorrupt)
}

// Factory creates flat indexes. It implements driven.VectorIndexFactory.
type Factory struct{}

// Ensure Factory implements the interface.
var _ driven.VectorIndexFactory = Factory{}

// New returns an empty index of the given dimension.
func (Factory) New(dim int) (driven.VectorIndex, error) {
	return New(dim)
}

// Load decodes a persisted index.
func (Factory) Load(data []byte) (driven.VectorIndex, error) {
	return Unmarshal(data)
}
