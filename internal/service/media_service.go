package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"io"
	"mime"
	"path/filepath"
	"strings"

	"blogcms/internal/database"
	"blogcms/internal/featureflags"
	"blogcms/internal/middleware"
	"blogcms/internal/models"
	"blogcms/internal/notifications"
	"blogcms/internal/observability"
	"blogcms/internal/repository"
	"blogcms/internal/storage"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
	"gorm.io/gorm"
)

const (
	DefaultPreviewMaxWidth = 480
	DefaultPreviewQuality  = 70
	previewSuffix          = "-preview.webp"
)

// allowedMediaTypes maps every accepted mime type to the extension stored
// files get. The client's file extension is never trusted.
var allowedMediaTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

// UploadMediaInput is one uploaded file. Size is the size the client
// declared; the body is still cut off at the configured ceiling.
type UploadMediaInput struct {
	OriginalName string
	MimeType     string
	Size         int64
	Body         io.Reader
	PostID       *uint
}

type MediaOptions struct {
	MaxBytes        int64
	PreviewMaxWidth int
	PreviewQuality  int
}

type MediaService struct {
	repo   repository.MediaRepository
	store  storage.Store
	flags  *featureflags.Manager
	events notifications.Publisher
	opts   MediaOptions

	newName func() string
}

func NewMediaService(
	repo repository.MediaRepository,
	store storage.Store,
	flags *featureflags.Manager,
	events notifications.Publisher,
	opts MediaOptions,
) *MediaService {
	if opts.PreviewMaxWidth <= 0 {
		opts.PreviewMaxWidth = DefaultPreviewMaxWidth
	}
	if opts.PreviewQuality <= 0 {
		opts.PreviewQuality = DefaultPreviewQuality
	}
	return &MediaService{
		repo:    repo,
		store:   store,
		flags:   flags,
		events:  events,
		opts:    opts,
		newName: uuid.NewString,
	}
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(mediaType)
}

func mediaKind(contentType string) string {
	if strings.HasPrefix(contentType, "video/") {
		return "video"
	}
	return "image"
}

// Upload validates, stores and records one file.
func (s *MediaService) Upload(ctx context.Context, in UploadMediaInput) (*models.Media, error) {
	if in.Body == nil {
		return nil, models.NewValidationError("No file uploaded")
	}
	if in.Size > s.opts.MaxBytes {
		observability.MediaUploadsRejected.WithLabelValues("too_large").Inc()
		return nil, models.NewTooLargeError(s.opts.MaxBytes)
	}
	contentType := normalizeContentType(in.MimeType)
	defaultExt, ok := allowedMediaTypes[contentType]
	if !ok {
		observability.MediaUploadsRejected.WithLabelValues("unsupported_type").Inc()
		return nil, models.NewUnsupportedTypeError(contentType)
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.opts.MaxBytes {
		observability.MediaUploadsRejected.WithLabelValues("too_large").Inc()
		return nil, models.NewTooLargeError(s.opts.MaxBytes)
	}
	if len(data) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}

	base := s.newName()
	filename := base + defaultExt

	if err := s.store.Save(ctx, filename, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, models.NewStorageError(err)
	}

	media := &models.Media{
		Filename:     filename,
		OriginalName: filepath.Base(in.OriginalName),
		MimeType:     contentType,
		Size:         int64(len(data)),
		StoragePath:  s.store.Location(filename),
		PostID:       in.PostID,
	}
	if mediaKind(contentType) == "image" {
		s.describeImage(ctx, media, base, data)
	}

	if err := s.repo.Create(ctx, media); err != nil {
		s.removeFiles(ctx, media)
		if database.IsForeignKeyViolation(err) && in.PostID != nil {
			return nil, models.NewNotFoundError("Post", *in.PostID)
		}
		return nil, fmt.Errorf("record media: %w", err)
	}

	observability.MediaUploadBytes.WithLabelValues(mediaKind(contentType)).Observe(float64(media.Size))
	middleware.Logger.InfoContext(ctx, "media uploaded",
		"media_id", media.ID, "filename", filename, "size", media.Size, "backend", s.store.Name())
	notifications.PublishBestEffort(ctx, s.events, notifications.EventMediaUploaded, map[string]any{
		"id":       media.ID,
		"filename": media.Filename,
		"post_id":  media.PostID,
	})

	out := withMediaURLs(s.store, *media)
	return &out, nil
}

// describeImage records dimensions and, when previews are enabled, stores a
// WebP preview. Failures here never fail the upload.
func (s *MediaService) describeImage(ctx context.Context, media *models.Media, base string, data []byte) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		middleware.Logger.WarnContext(ctx, "could not read image dimensions", "filename", media.Filename, "error", err)
		return
	}
	media.Width, media.Height = cfg.Width, cfg.Height

	if !s.flags.On(featureflags.MediaPreviews) {
		return
	}
	preview, err := s.renderPreview(data)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "preview generation failed", "filename", media.Filename, "error", err)
		return
	}
	key := base + previewSuffix
	if err := s.store.Save(ctx, key, bytes.NewReader(preview), int64(len(preview)), "image/webp"); err != nil {
		middleware.Logger.WarnContext(ctx, "preview store failed", "filename", media.Filename, "error", err)
		return
	}
	media.PreviewFilename = key
}

func (s *MediaService) renderPreview(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	dst := resizeToWidth(src, s.opts.PreviewMaxWidth)

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, dst, &webp.Options{Quality: float32(s.opts.PreviewQuality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// resizeToWidth scales src down to maxWidth keeping the aspect ratio. Images
// that already fit are copied unchanged.
func resizeToWidth(src image.Image, maxWidth int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth {
		maxWidth = w
	}
	newH := h * maxWidth / w
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func (s *MediaService) removeFiles(ctx context.Context, media *models.Media) {
	for _, key := range []string{media.Filename, media.PreviewFilename} {
		if key == "" {
			continue
		}
		if err := s.store.Delete(ctx, key); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove stored file", "key", key, "error", err)
		}
	}
}

// List returns every upload newest first with derived URLs.
func (s *MediaService) List(ctx context.Context) ([]models.Media, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	out := make([]models.Media, 0, len(rows))
	for _, m := range rows {
		out = append(out, withMediaURLs(s.store, *m))
	}
	return out, nil
}

// Delete removes the media row and its stored files.
func (s *MediaService) Delete(ctx context.Context, id uint) error {
	media, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Media", id)
		}
		return fmt.Errorf("get media %d: %w", id, err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Media", id)
		}
		return fmt.Errorf("delete media %d: %w", id, err)
	}
	s.removeFiles(ctx, media)
	return nil
}

func withMediaURLs(store storage.Store, m models.Media) models.Media {
	if store == nil {
		return m
	}
	m.URL = store.URL(m.Filename)
	if m.PreviewFilename != "" {
		m.PreviewURL = store.URL(m.PreviewFilename)
	}
	return m
}
