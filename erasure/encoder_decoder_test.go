package erasure

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func roundtrip(t *testing.T, c *Codec, d []byte, erase []int) []byte {
	t.Helper()
	shards, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, i := range erase {
		shards[i] = nil
	}
	dr, err := c.Decode(shards, int64(len(d)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return dr.DecodedData
}

func Test_Encode_Decode(t *testing.T) {
	c, _ := NewCodec(4, 2)
	d := []byte{1, 2, 3, 4, 5}
	got := roundtrip(t, c, d, nil)
	if !bytes.Equal(got, d) {
		t.Errorf("DecodedData got %v, expected %v", got, d)
	}
}

func Test_ShardSizing(t *testing.T) {
	c, _ := NewCodec(4, 2)
	d := []byte("oddsize")
	shards, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(shards) != 6 {
		t.Fatalf("shards count got %d, expected 6", len(shards))
	}
	// ceil(7/4) = 2, last data shard zero padded.
	want := [][]byte{[]byte("od"), []byte("ds"), []byte("iz"), {'e', 0}}
	for i := range want {
		if !bytes.Equal(shards[i], want[i]) {
			t.Errorf("data shard %d got %v, expected %v", i, shards[i], want[i])
		}
	}
	for i := range shards {
		if len(shards[i]) != 2 {
			t.Errorf("shard %d length got %d, expected 2", i, len(shards[i]))
		}
	}
	got := roundtrip(t, c, d, nil)
	if !bytes.Equal(got, d) {
		t.Errorf("DecodedData got %q, expected %q", got, d)
	}
}

func Test_EmptyPayload(t *testing.T) {
	c, _ := NewCodec(4, 2)
	shards, err := c.Encode(nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(shards) != 6 {
		t.Fatalf("shards count got %d, expected 6", len(shards))
	}
	for i := range shards {
		if len(shards[i]) != 0 {
			t.Errorf("shard %d length got %d, expected 0", i, len(shards[i]))
		}
	}
	dr, err := c.Decode(shards, 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(dr.DecodedData) != 0 {
		t.Errorf("DecodedData got %d bytes, expected none", len(dr.DecodedData))
	}
}

func Test_Determinism(t *testing.T) {
	c, _ := NewCodec(4, 2)
	d := make([]byte, 1021)
	rand.New(rand.NewSource(42)).Read(d)
	first, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Errorf("shard %d differs across encodes", i)
		}
	}
}

func Test_ErasureTolerance(t *testing.T) {
	c, _ := NewCodec(4, 2)
	d := []byte("abcdefabcdefabcdefabcdefabcdefabcdef")
	erasures := [][]int{
		{}, {0}, {5}, {4, 5}, {1, 3}, {0, 2}, {2, 5}, {0, 5},
	}
	for _, erase := range erasures {
		got := roundtrip(t, c, d, erase)
		if !bytes.Equal(got, d) {
			t.Errorf("erasing %v: DecodedData got %q, expected %q", erase, got, d)
		}
	}
}

func Test_ReconstructedIndices(t *testing.T) {
	c, _ := NewCodec(4, 2)
	d := []byte("abcdefabcdefabcdefabcdefabcdefabcdef")
	shards, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	shards[1] = nil
	shards[4] = nil
	dr, err := c.Decode(shards, int64(len(d)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(dr.ReconstructedShardsIndices) != 2 ||
		dr.ReconstructedShardsIndices[0] != 1 || dr.ReconstructedShardsIndices[1] != 4 {
		t.Errorf("ReconstructedShardsIndices got %v, expected [1 4]", dr.ReconstructedShardsIndices)
	}
	// The reconstructed slots must hold the canonical shard bytes again.
	fresh, _ := c.Encode(d)
	if !bytes.Equal(shards[1], fresh[1]) || !bytes.Equal(shards[4], fresh[4]) {
		t.Error("reconstructed slots differ from canonical shards")
	}
}

func Test_InsufficientShards(t *testing.T) {
	c, _ := NewCodec(4, 2)
	d := []byte("abcdefabcdefabcdefabcdefabcdefabcdef")
	shards, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	shards[0] = nil
	shards[2] = nil
	shards[4] = nil
	if _, err := c.Decode(shards, int64(len(d))); !errors.Is(err, ErrInsufficientShards) {
		t.Errorf("Decode error got %v, expected ErrInsufficientShards", err)
	}
}

func Test_InconsistentShardLength(t *testing.T) {
	c, _ := NewCodec(4, 2)
	d := []byte("abcdefabcdefabcdefabcdefabcdefabcdef")
	shards, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	shards[2] = shards[2][:len(shards[2])-1]
	if _, err := c.Decode(shards, int64(len(d))); !errors.Is(err, ErrInconsistentShardLength) {
		t.Errorf("Decode error got %v, expected ErrInconsistentShardLength", err)
	}
}

func Test_InvalidParameters(t *testing.T) {
	c, _ := NewCodec(4, 2)
	if _, err := c.Decode(make([][]byte, 5), 10); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("short slot vector: got %v, expected ErrInvalidParameters", err)
	}
	shards, _ := c.Encode([]byte("abcd"))
	// Declared size larger than the shards can carry.
	if _, err := c.Decode(shards, 100); !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("oversized declared size: got %v, expected ErrInvalidParameters", err)
	}
}

func Test_LargeFileRoundtrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 64MiB roundtrip in short mode")
	}
	c, _ := NewCodec(4, 2)
	d := make([]byte, 8192*8192)
	rand.New(rand.NewSource(7)).Read(d)
	shards, err := c.Encode(d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for i := range shards {
		if len(shards[i]) != 16777216 {
			t.Fatalf("shard %d length got %d, expected 16777216", i, len(shards[i]))
		}
	}
	shards[0] = nil
	shards[5] = nil
	dr, err := c.Decode(shards, int64(len(d)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(dr.DecodedData, d) {
		t.Error("64MiB roundtrip lost bytes")
	}
}
