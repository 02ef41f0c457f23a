package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourusername/mediashelf/internal/domain"
	"github.com/yourusername/mediashelf/internal/format"
)

type fakeCatalog struct {
	catalog *format.Catalog
	err     error
	calls   int
}

func (f *fakeCatalog) Fetch(ctx context.Context, url string) (*format.Catalog, error) {
	f.calls++
	return f.catalog, f.err
}

func talkCatalog() *format.Catalog {
	return &format.Catalog{
		Title:     "My Talk",
		Thumbnail: "https://img.example.com/talk.jpg",
		Variants: []format.Variant{
			{ID: "137", Ext: "mp4", VCodec: "avc1.640028", ACodec: "none", Height: 1080},
			{ID: "136", Ext: "mp4", VCodec: "avc1.4d401f", ACodec: "none", Height: 720},
			{ID: "140", Ext: "m4a", VCodec: "none", ACodec: "mp4a.40.2", Language: "en"},
		},
	}
}

func TestFormatService_ResolvesMissingFormat(t *testing.T) {
	catalog := &fakeCatalog{catalog: talkCatalog()}
	svc := NewFormatService(catalog, nil)

	req := domain.DownloadRequest{URL: "https://example.com/v/1"}
	svc.Resolve(context.Background(), &req, FormatQuery{Mode: format.ModePlanned, Height: 720, Language: "en"})

	assert.Equal(t, "136+140", req.FormatID)
	assert.Equal(t, "My Talk", *req.Title)
	assert.Equal(t, "https://img.example.com/talk.jpg", *req.Thumbnail)
}

func TestFormatService_DefaultsToOriginalMode(t *testing.T) {
	svc := NewFormatService(&fakeCatalog{catalog: talkCatalog()}, nil)

	req := domain.DownloadRequest{URL: "https://example.com/v/1", Title: domain.Ptr("Mine")}
	svc.Resolve(context.Background(), &req, FormatQuery{})

	assert.Equal(t, "137+140", req.FormatID)
	assert.Equal(t, "Mine", *req.Title, "caller metadata wins")
}

func TestFormatService_KeepsExplicitFormat(t *testing.T) {
	catalog := &fakeCatalog{catalog: talkCatalog()}
	svc := NewFormatService(catalog, nil)

	req := domain.DownloadRequest{URL: "https://example.com/v/1", FormatID: "22"}
	svc.Resolve(context.Background(), &req, FormatQuery{})

	assert.Equal(t, "22", req.FormatID)
	assert.Zero(t, catalog.calls)
}

func TestFormatService_FallsBackToDefaultSelector(t *testing.T) {
	t.Run("catalog error", func(t *testing.T) {
		svc := NewFormatService(&fakeCatalog{err: errors.New("unsupported url")}, nil)
		req := domain.DownloadRequest{URL: "https://example.com/v/1"}
		svc.Resolve(context.Background(), &req, FormatQuery{})
		assert.Equal(t, domain.DefaultFormatSelector, req.FormatID)
		assert.Nil(t, req.Title)
	})

	t.Run("nothing usable", func(t *testing.T) {
		svc := NewFormatService(&fakeCatalog{catalog: &format.Catalog{Title: "Empty"}}, nil)
		req := domain.DownloadRequest{URL: "https://example.com/v/1"}
		svc.Resolve(context.Background(), &req, FormatQuery{})
		assert.Equal(t, domain.DefaultFormatSelector, req.FormatID)
		assert.Equal(t, "Empty", *req.Title)
	})
}
