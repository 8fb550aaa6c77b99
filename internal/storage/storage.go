// Package storage keeps board assets in an S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the subset of object storage the asset endpoints use.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, objectName string) (bool, error)
	PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// BoardPrefix is the key prefix under which a board's assets live.
func BoardPrefix(boardID string) string {
	return "boards/" + boardID + "/"
}

func AssetKey(boardID, assetID string) string {
	return BoardPrefix(boardID) + assetID
}
