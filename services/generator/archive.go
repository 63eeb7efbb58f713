package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"sbomd/services/generations"
)

// archiveManifest stores a zstd-compressed copy of the manifest in object
// storage under the shared archive key.
func (w *Worker) archiveManifest(ctx context.Context, sbomID string, bom json.RawMessage) error {
	var buf bytes.Buffer
	encoder, err := zstd.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := encoder.Write(bom); err != nil {
		encoder.Close()
		return fmt.Errorf("compress manifest: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("flush manifest: %w", err)
	}

	digest := sha256.Sum256(buf.Bytes())
	key := generations.ArchiveKey(sbomID)
	return w.archive.PutObject(ctx, w.config.ArchiveBucket, key, &buf, int64(buf.Len()), hex.EncodeToString(digest[:]))
}
