package auth

import (
	"context"
	"fmt"
	"testing"

	"github.com/sharedcode/shardvault"
	"github.com/sharedcode/shardvault/mocks"
)

var ctx = context.Background()

// stubRegistry hands out sequential owner ids and counts lookups.
type stubRegistry struct {
	owners map[string]int64
	calls  int
	fail   error
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{owners: make(map[string]int64)}
}

func (r *stubRegistry) GetOrCreateOwnerID(ctx context.Context, username string) (int64, error) {
	r.calls++
	if r.fail != nil {
		return 0, r.fail
	}
	if id, ok := r.owners[username]; ok {
		return id, nil
	}
	id := int64(len(r.owners) + 1)
	r.owners[username] = id
	return id, nil
}

func Test_Resolve_DevEnvironment(t *testing.T) {
	t.Setenv("SHARDVAULT_ENV", "DEV")
	registry := newStubRegistry()
	resolver, err := NewResolver(registry, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	// On dev the token doubles as the subject.
	first, err := resolver.Resolve(ctx, "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := resolver.Resolve(ctx, "bob")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if first == second {
		t.Errorf("distinct subjects share owner id %d", first)
	}
	again, err := resolver.Resolve(ctx, "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if again != first {
		t.Errorf("alice resolved to %d, expected %d", again, first)
	}
}

func Test_Resolve_QAEnvironment(t *testing.T) {
	t.Setenv("SHARDVAULT_ENV", "QA")
	t.Setenv("SHARDVAULT_QA_TOKEN", "qa-secret")
	registry := newStubRegistry()
	resolver, err := NewResolver(registry, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if _, err := resolver.Resolve(ctx, "qa-secret"); err != nil {
		t.Errorf("Resolve with QA token: %v", err)
	}
	if _, err := resolver.Resolve(ctx, "wrong"); shardvault.CodeOf(err) != shardvault.AuthFailure {
		t.Errorf("Resolve with wrong token got %v, expected AuthFailure", err)
	}
}

func Test_Resolve_EmptyToken(t *testing.T) {
	resolver, err := NewResolver(newStubRegistry(), nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if _, err := resolver.Resolve(ctx, ""); shardvault.CodeOf(err) != shardvault.AuthFailure {
		t.Errorf("got %v, expected AuthFailure", err)
	}
}

func Test_Resolve_CachesOwner(t *testing.T) {
	t.Setenv("SHARDVAULT_ENV", "DEV")
	registry := newStubRegistry()
	resolver, err := NewResolver(registry, mocks.NewCache())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	first, err := resolver.Resolve(ctx, "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	again, err := resolver.Resolve(ctx, "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if again != first {
		t.Errorf("cached resolution got %d, expected %d", again, first)
	}
	if registry.calls != 1 {
		t.Errorf("registry lookups got %d, expected 1", registry.calls)
	}
}

func Test_Resolve_RegistryFailure(t *testing.T) {
	t.Setenv("SHARDVAULT_ENV", "DEV")
	registry := newStubRegistry()
	registry.fail = fmt.Errorf("cassandra down")
	resolver, err := NewResolver(registry, nil)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if _, err := resolver.Resolve(ctx, "alice"); shardvault.CodeOf(err) != shardvault.Internal {
		t.Errorf("got %v, expected Internal", err)
	}
}

func Test_NewResolver_NilRegistry(t *testing.T) {
	if _, err := NewResolver(nil, nil); err == nil {
		t.Error("expected an error for nil registry")
	}
}
