package storage

import (
	"context"
	"errors"

	"github.com/viralforge/mesh/services/financial-rails/M47-bundle-access-service/internal/ports"
)

var errNotConfigured = errors.New("drive credentials not configured")

// DisabledFileStorage is wired when the drive credential cannot be loaded at
// startup. Listing and downloads then surface as storage-unavailable while
// the payment flow keeps working.
type DisabledFileStorage struct{}

func NewDisabledFileStorage() *DisabledFileStorage {
	return &DisabledFileStorage{}
}

func (*DisabledFileStorage) ListFolder(context.Context, string) ([]ports.FileInfo, error) {
	return nil, errNotConfigured
}

func (*DisabledFileStorage) Fetch(context.Context, string) (ports.FileHandle, error) {
	return ports.FileHandle{}, errNotConfigured
}
