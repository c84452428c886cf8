package blobstore

import (
	"strings"
	"testing"
)

func TestObjectKeyNamespacing(t *testing.T) {
	key := ObjectKey("docket", "u1")

	if !strings.HasPrefix(key, "docket/users/u1/") {
		t.Errorf("key = %q, want docket/users/u1/ prefix", key)
	}
	if key == ObjectKey("docket", "u1") {
		t.Error("two keys for the same user must not collide")
	}
	if strings.HasPrefix(ObjectKey("other", "u1"), "docket/") {
		t.Error("namespace leaked across instances")
	}
}

func TestObjectURL(t *testing.T) {
	withEndpoint := &S3Uploader{cfg: S3Config{Endpoint: "http://minio:9000/", Bucket: "photos"}}
	if got := withEndpoint.objectURL("a/b"); got != "http://minio:9000/photos/a/b" {
		t.Errorf("objectURL = %q", got)
	}

	plain := &S3Uploader{cfg: S3Config{Region: "eu-central-1", Bucket: "photos"}}
	if got := plain.objectURL("a/b"); got != "https://photos.s3.eu-central-1.amazonaws.com/a/b" {
		t.Errorf("objectURL = %q", got)
	}
}
