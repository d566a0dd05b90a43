package minio

import (
	"context"
	"testing"
)

func TestNewValidatesOptions(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, Options{Bucket: "certs"}); err == nil {
		t.Fatalf("expected error without endpoint")
	}
	if _, err := New(ctx, Options{Endpoint: "localhost:9000"}); err == nil {
		t.Fatalf("expected error without bucket")
	}
}
