package shardvault

import "testing"

func Test_UUID(t *testing.T) {
	id := NewUUID()
	if id.IsNil() {
		t.Fatal("NewUUID returned nil UUID")
	}
	parsed, err := ParseUUID(id.String())
	if err != nil {
		t.Fatalf("ParseUUID: %v", err)
	}
	if parsed != id {
		t.Errorf("ParseUUID got %s, expected %s", parsed, id)
	}
	if NewUUID() == id {
		t.Error("two fresh UUIDs collide")
	}
	high, low := id.Split()
	if high == 0 && low == 0 {
		t.Error("Split of a fresh UUID returned zeroes")
	}
	if !NilUUID.IsNil() {
		t.Error("NilUUID should report nil")
	}
}
