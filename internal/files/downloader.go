// Package files stores attachment bodies fetched from the chat platform
// and maps them to public URLs.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/taskbot/internal/model"
	"github.com/nhle/taskbot/internal/tasks"
	"github.com/nhle/taskbot/internal/telegram"
)

// ErrNoPublicURL is returned when attachments.public_url is not set.
var ErrNoPublicURL = errors.New("attachments public url not configured")

// Fetcher is the part of the Bot API client the downloader needs.
type Fetcher interface {
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	DownloadFile(ctx context.Context, filePath string, w io.Writer, maxBytes int64) (int64, error)
}

// Downloader implements tasks.FileResolver by copying the file into dir
// and returning its URL under publicURL.
type Downloader struct {
	fetcher   Fetcher
	dir       string
	publicURL string
	maxBytes  int64
	log       *zap.Logger
}

var _ tasks.FileResolver = (*Downloader)(nil)

// NewDownloader creates a Downloader from the attachments config.
func NewDownloader(f Fetcher, cfg model.AttachmentsConfig, log *zap.Logger) *Downloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Downloader{
		fetcher:   f,
		dir:       cfg.Dir,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		maxBytes:  cfg.MaxBytes,
		log:       log,
	}
}

// Dir is where bodies are written.
func (d *Downloader) Dir() string { return d.dir }

// Resolve downloads ref and returns the public URL of the stored copy.
// Partial files are removed on failure.
func (d *Downloader) Resolve(ctx context.Context, ref tasks.FileRef) (string, error) {
	if d.publicURL == "" {
		return "", ErrNoPublicURL
	}

	f, err := d.fetcher.GetFile(ctx, ref.FileID)
	if err != nil {
		return "", fmt.Errorf("resolving file %s: %w", ref.FileID, err)
	}
	if d.maxBytes > 0 && f.FileSize > d.maxBytes {
		return "", fmt.Errorf("file %s: %w (%d bytes)", ref.FileID, telegram.ErrFileTooLarge, f.FileSize)
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating attachments directory %s: %w", d.dir, err)
	}

	name := StoredName(ref)
	dst := filepath.Join(d.dir, name)
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dst, err)
	}

	n, err := d.fetcher.DownloadFile(ctx, f.FilePath, out, d.maxBytes)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("downloading file %s: %w", ref.FileID, err)
	}

	d.log.Debug("attachment stored",
		zap.String("file_id", ref.FileID),
		zap.String("name", name),
		zap.Int64("bytes", n))

	return d.publicURL + "/" + name, nil
}

// StoredName returns a fresh file name for ref: "tg_<uuid>.<ext>", with
// the extension taken from the original name, "jpg" for photos, or "dat".
func StoredName(ref tasks.FileRef) string {
	return "tg_" + uuid.NewString() + "." + extension(ref)
}

func extension(ref tasks.FileRef) string {
	if ext := strings.TrimPrefix(filepath.Ext(ref.FileName), "."); ext != "" && !strings.ContainsAny(ext, `/\`) {
		return strings.ToLower(ext)
	}
	if ref.FileType == model.FileTypePhoto {
		return "jpg"
	}
	return "dat"
}
