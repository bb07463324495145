//go:build integration

package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
	"github.com/matzehuels/sheetbatch/pkg/infra/viewstore/storetest"
)

// Run with: SHEETBATCH_MONGO_URI=mongodb://localhost:27017 go test -tags integration ./pkg/infra/viewstore/mongo
func TestConformance(t *testing.T) {
	uri := os.Getenv("SHEETBATCH_MONGO_URI")
	if uri == "" {
		t.Skip("SHEETBATCH_MONGO_URI not set")
	}

	storetest.Run(t, func(t *testing.T) viewset.Store {
		ctx := context.Background()
		s, err := New(ctx, Options{URI: uri, Database: "sheetbatch_test", Collection: "viewsets_" + uuid.NewString()})
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		t.Cleanup(func() {
			_ = s.coll.Drop(ctx)
			s.Close()
		})
		return s
	})
}
