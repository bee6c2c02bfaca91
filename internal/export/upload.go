package export

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sqlpeek/sqlpeek/internal/query"
	"github.com/sqlpeek/sqlpeek/internal/storage"
)

// Upload encodes the export and stores it under a fresh export id.
func Upload(ctx context.Context, store storage.ObjectStore, format Format, header []string, rows [][]query.Cell, now time.Time) (storage.ObjectInfo, error) {
	if store == nil {
		return storage.ObjectInfo{}, fmt.Errorf("object store is not configured")
	}
	data, err := Encode(format, header, rows)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	key, err := storage.BuildExportPath(uuid.NewString(), FileName(format, now), now)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	info, err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{
		ContentType: format.ContentType(),
		Metadata: map[string]string{
			"format":  string(format),
			"rows":    strconv.Itoa(len(rows)),
			"columns": strconv.Itoa(len(header)),
		},
	})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload export: %w", err)
	}
	stored, err := store.Stat(ctx, key)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("verify export: %w", err)
	}
	if stored.Size != int64(len(data)) {
		return storage.ObjectInfo{}, fmt.Errorf("export %q stored %d bytes, want %d", key, stored.Size, len(data))
	}
	info.Size = stored.Size
	if info.ETag == "" {
		info.ETag = stored.ETag
	}
	if info.LastModified.IsZero() {
		info.LastModified = stored.LastModified
	}
	return info, nil
}
