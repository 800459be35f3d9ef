package runtime

import (
	"testing"

	"github.com/secretlease/marketplace/internal/config"
	"github.com/secretlease/marketplace/pkg/logger"
)

func TestBuildStoresMemoryFallback(t *testing.T) {
	cfg := &config.Config{}
	log := logger.NewDefault("test")

	stores, db, err := buildStores(cfg, log)
	if err != nil {
		t.Fatalf("build stores: %v", err)
	}
	if db != nil {
		t.Fatalf("no DSN must not open a database")
	}
	// Nil stores are resolved to the memory implementation by app.New.
	if stores.Accounts != nil || stores.Transactions != nil {
		t.Fatalf("expected zero-value stores, got %+v", stores)
	}
}

func TestBuildRevokerMemoryFallback(t *testing.T) {
	cfg := &config.Config{}
	log := logger.NewDefault("test")

	revoker, err := buildRevoker(cfg, log)
	if err != nil {
		t.Fatalf("build revoker: %v", err)
	}
	if revoker == nil {
		t.Fatalf("expected in-process revoker")
	}
}
