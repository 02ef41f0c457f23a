package app

import (
	"context"
	"strings"

	"github.com/yourusername/mediashelf/internal/domain"
	"github.com/yourusername/mediashelf/internal/format"
	"go.uber.org/zap"
)

// CatalogFetcher lists the stream variants a media URL offers
type CatalogFetcher interface {
	Fetch(ctx context.Context, url string) (*format.Catalog, error)
}

// FormatQuery is the caller's preference for picking a format
type FormatQuery struct {
	Mode      format.Mode
	Height    int
	Language  string
	UserAgent string
}

// FormatService resolves a format id for requests that arrive without one
type FormatService struct {
	catalog CatalogFetcher
	logger  *zap.Logger
}

// NewFormatService creates a new format service
func NewFormatService(catalog CatalogFetcher, log *zap.Logger) *FormatService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FormatService{catalog: catalog, logger: log}
}

// Resolve fills req.FormatID and any missing title or thumbnail from the remote catalog.
// Requests that already carry a format id are left alone. When the catalog cannot be read
// or offers nothing usable, the fetcher's generic selector is used.
func (s *FormatService) Resolve(ctx context.Context, req *domain.DownloadRequest, q FormatQuery) {
	if strings.TrimSpace(req.FormatID) != "" {
		return
	}

	catalog, err := s.catalog.Fetch(ctx, req.URL)
	if err != nil {
		s.logger.Warn("Failed to read format catalog, using default selector",
			zap.String("url", req.URL), zap.Error(err))
		req.FormatID = domain.DefaultFormatSelector
		return
	}

	if req.Title == nil && catalog.Title != "" {
		req.Title = domain.Ptr(catalog.Title)
	}
	if req.Thumbnail == nil && catalog.Thumbnail != "" {
		req.Thumbnail = domain.Ptr(catalog.Thumbnail)
	}

	mode := q.Mode
	if mode == "" {
		mode = format.ModeOriginal
	}
	sel, ok := format.Select(catalog.Variants, format.Request{
		Mode:      mode,
		Height:    q.Height,
		Language:  q.Language,
		UserAgent: q.UserAgent,
	})
	if !ok {
		req.FormatID = domain.DefaultFormatSelector
		return
	}

	req.FormatID = sel.FormatID()
	s.logger.Debug("Resolved format",
		zap.String("url", req.URL),
		zap.String("format", req.FormatID),
		zap.Int("height", sel.Height))
}
