// Package erasure wraps the Reed-Solomon codec used to split files into data
// and parity shards and to reconstruct them from any sufficient subset.
// Arithmetic is over GF(2^8); the code is MDS, so any DataShardsCount of the
// total shards suffice to rebuild the original bytes.

// The encoder turns a byte payload into equally sized shards.
// To reverse the process see "decoder.go".
package erasure

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// Codec erasure encodes and decodes byte payloads. It is stateless past
// construction and safe for concurrent use.
type Codec struct {
	dataShardsCount   int
	parityShardsCount int
	encoder           reedsolomon.Encoder
}

// NewCodec instantiates a codec with the given shard counts.
func NewCodec(dataShardsCount int, parityShardsCount int) (*Codec, error) {
	if dataShardsCount+parityShardsCount > 256 {
		return nil, fmt.Errorf("sum of data and parity shards cannot exceed 256")
	}
	enc, err := reedsolomon.New(dataShardsCount, parityShardsCount)
	if err != nil {
		return nil, err
	}
	return &Codec{
		dataShardsCount:   dataShardsCount,
		parityShardsCount: parityShardsCount,
		encoder:           enc,
	}, nil
}

func (c *Codec) DataShardsCount() int {
	return c.dataShardsCount
}

func (c *Codec) ParityShardsCount() int {
	return c.parityShardsCount
}

// TotalShardsCount is the number of shards Encode emits per payload.
func (c *Codec) TotalShardsCount() int {
	return c.dataShardsCount + c.parityShardsCount
}

// ShardSize returns the per-shard byte length for a payload of originalSize,
// i.e. originalSize divided by the data shard count, rounded up.
func ShardSize(originalSize int64, dataShardsCount int) int {
	return int((originalSize + int64(dataShardsCount) - 1) / int64(dataShardsCount))
}

// Encode splits data into data shards, zero padding the tail of the last one,
// and derives the parity shards. All returned shards have equal length
// ShardSize(len(data), DataShardsCount). Identical input yields byte identical
// shards. A zero length payload yields all empty shards.
func (c *Codec) Encode(data []byte) ([][]byte, error) {
	if len(data) == 0 {
		shards := make([][]byte, c.TotalShardsCount())
		for i := range shards {
			shards[i] = []byte{}
		}
		return shards, nil
	}

	// Split copies the payload sequentially into the data shards and allocates
	// zeroed parity shards of the same length.
	shards, err := c.encoder.Split(data)
	if err != nil {
		return nil, err
	}

	if err := c.encoder.Encode(shards); err != nil {
		return nil, err
	}
	return shards, nil
}
