package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObjectStore holds normalised inputs where the hosted models can fetch them.
type ObjectStore interface {
	// Upload stores data under key and returns its public URL.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey names an upload by its timestamp; the short random suffix keeps
// concurrent uploads in the same millisecond apart.
func ObjectKey(prefix string, now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s/%d-%s.jpg", strings.Trim(prefix, "/"), now.UnixMilli(), suffix)
}
