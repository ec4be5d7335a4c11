// The decoder reverses the process done by "encoder.go".
package erasure

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrInsufficientShards means fewer shards are present than the data shard count.
	ErrInsufficientShards = errors.New("not enough shards to reconstruct the data")
	// ErrInconsistentShardLength means the present shards disagree on length.
	ErrInconsistentShardLength = errors.New("present shards have inconsistent lengths")
	// ErrInvalidParameters means the slot vector or declared size is malformed.
	ErrInvalidParameters = errors.New("invalid shard slots or declared size")
)

// DecodeResult is a structure containing the Decode function result.
type DecodeResult struct {
	// DecodedData is the original payload, truncated to the declared size.
	DecodedData []byte
	// ReconstructedShardsIndices holds the indices of the slots that were
	// absent on input and had to be reconstructed. Useful for fixing the
	// missing or corrupted shards, e.g. - save or overwrite them.
	ReconstructedShardsIndices []int
}

// Decode reverses the erasure encode done on shards. The shards slice must have
// TotalShardsCount slots; a nil slot marks a missing or rejected shard. The
// caller supplies originalSize because trailing zero padding is not recoverable
// from the shards alone. Absent slots are reconstructed in place, their indices
// reported in the result so callers can rewrite them.
func (c *Codec) Decode(shards [][]byte, originalSize int64) (*DecodeResult, error) {
	if len(shards) != c.TotalShardsCount() || originalSize < 0 {
		return nil, ErrInvalidParameters
	}

	r := &DecodeResult{}
	shardSize := -1
	for i := range shards {
		if shards[i] == nil {
			r.ReconstructedShardsIndices = append(r.ReconstructedShardsIndices, i)
			continue
		}
		if shardSize == -1 {
			shardSize = len(shards[i])
		} else if len(shards[i]) != shardSize {
			return nil, ErrInconsistentShardLength
		}
	}
	if len(shards)-len(r.ReconstructedShardsIndices) < c.dataShardsCount {
		return nil, ErrInsufficientShards
	}
	if shardSize != ShardSize(originalSize, c.dataShardsCount) {
		return nil, ErrInvalidParameters
	}

	// A zero length payload has all-empty shards; nothing to rebuild.
	if originalSize == 0 {
		for _, i := range r.ReconstructedShardsIndices {
			shards[i] = []byte{}
		}
		r.DecodedData = []byte{}
		return r, nil
	}

	if len(r.ReconstructedShardsIndices) > 0 {
		if err := c.encoder.Reconstruct(shards); err != nil {
			return nil, fmt.Errorf("reconstruct failed: %w", err)
		}
		if ok, err := c.encoder.Verify(shards); !ok {
			return nil, fmt.Errorf("verify after reconstruction failed, error: %v", err)
		}
	}

	var b bytes.Buffer
	b.Grow(int(originalSize))
	if err := c.encoder.Join(&b, shards, int(originalSize)); err != nil {
		return nil, fmt.Errorf("join failed: %w", err)
	}
	r.DecodedData = b.Bytes()
	return r, nil
}
