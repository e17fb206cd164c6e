package ports

import (
	"context"
	"io"
)

// FileInfo describes one downloadable file inside a bundle folder.
type FileInfo struct {
	FileID string `json:"file_id"`
	Name   string `json:"name"`
}

// FileHandle is an open download stream. Callers own Content and must close it.
type FileHandle struct {
	Name    string
	Size    int64
	Content io.ReadCloser
}

// FileStorage wraps the external drive service holding bundle contents.
type FileStorage interface {
	ListFolder(ctx context.Context, folderID string) ([]FileInfo, error)
	Fetch(ctx context.Context, fileID string) (FileHandle, error)
}
