package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/oficina-virtual/apiserver/types"
)

const exportContentType = "application/json"

// ObjectWriter uploads objects to a bucket.
type ObjectWriter interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
}

// ExportService writes snapshots of the user directory to object storage.
type ExportService struct {
	users   *UserService
	objects ObjectWriter
}

func NewExportService(users *UserService, objects ObjectWriter) *ExportService {
	return &ExportService{users: users, objects: objects}
}

// ExportUsers uploads every user as a single JSON document and returns
// the object key.
func (s *ExportService) ExportUsers(ctx context.Context, now time.Time) (string, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return "", err
	}

	doc := types.UserExport{
		GeneratedAt: now.UTC(),
		Total:       len(users),
		Users:       users,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}

	key := ExportKey(now)
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), exportContentType); err != nil {
		return "", fmt.Errorf("upload export: %w", err)
	}
	return key, nil
}

// ExportKey names the export object for the given instant.
func ExportKey(now time.Time) string {
	return fmt.Sprintf("exports/usuarios-%s.json", now.UTC().Format("20060102T150405Z"))
}
