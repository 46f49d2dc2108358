package storage

import "context"

// UploadResult identifies a stored blob: the URL clients fetch it from and
// the opaque ID used to release it later.
type UploadResult struct {
	URL      string
	PublicID string
}

const (
	ResourceImage = "image"
	ResourceRaw   = "raw"
)

// BlobStore is the attachment storage boundary. Message records keep only
// the returned URL and public ID; the store owns the bytes.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, folder, resourceType string) (*UploadResult, error)
	Destroy(ctx context.Context, publicID, resourceType string) error
}
