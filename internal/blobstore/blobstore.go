// Package blobstore is the boundary with the remote object store: it accepts
// a binary blob and returns a durable retrieval URL.
package blobstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Uploader is the object-store capability consumed by the item layer.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ObjectKey builds a destination path namespaced by application instance and
// owning user, so tenants sharing a bucket cannot collide.
func ObjectKey(namespace, uid string) string {
	return fmt.Sprintf("%s/users/%s/%s", namespace, uid, uuid.New())
}
