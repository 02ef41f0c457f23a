package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/mediashelf/internal/format"
	"go.uber.org/zap"
)

// FetcherCatalog asks the fetcher binary for the variants available at a URL
type FetcherCatalog struct {
	binary string
	logger *zap.Logger
}

// NewFetcherCatalog creates a catalog backed by `<binary> -J`
func NewFetcherCatalog(binary string, log *zap.Logger) *FetcherCatalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &FetcherCatalog{binary: binary, logger: log}
}

// Fetch runs the fetcher in metadata-only mode and parses its JSON dump
func (c *FetcherCatalog) Fetch(ctx context.Context, url string) (*format.Catalog, error) {
	cmd := exec.CommandContext(ctx, c.binary, "-J", "--no-playlist", "--no-warnings", url)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		c.logger.Debug("Catalog fetch failed",
			zap.String("url", url),
			zap.String("stderr", strings.TrimSpace(stderr.String())),
			zap.Error(err))
		return nil, fmt.Errorf("failed to fetch formats: %w", err)
	}
	return parseCatalog(out)
}

type catalogDump struct {
	Title     string          `json:"title"`
	Thumbnail string          `json:"thumbnail"`
	Formats   []catalogFormat `json:"formats"`
}

type catalogFormat struct {
	FormatID           string   `json:"format_id"`
	Ext                string   `json:"ext"`
	VCodec             string   `json:"vcodec"`
	ACodec             string   `json:"acodec"`
	Height             *int     `json:"height"`
	Language           *string  `json:"language"`
	LanguagePreference *int     `json:"language_preference"`
	TBR                *float64 `json:"tbr"`
	DynamicRange       *string  `json:"dynamic_range"`
}

func parseCatalog(data []byte) (*format.Catalog, error) {
	var dump catalogDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("failed to parse format catalog: %w", err)
	}

	cat := &format.Catalog{
		Title:     dump.Title,
		Thumbnail: dump.Thumbnail,
		Variants:  make([]format.Variant, 0, len(dump.Formats)),
	}
	for _, f := range dump.Formats {
		v := format.Variant{
			ID:     f.FormatID,
			Ext:    f.Ext,
			VCodec: f.VCodec,
			ACodec: f.ACodec,
		}
		if f.Height != nil {
			v.Height = *f.Height
		}
		if f.Language != nil {
			v.Language = *f.Language
		}
		if f.LanguagePreference != nil {
			v.LanguagePreference = *f.LanguagePreference
		}
		if f.TBR != nil {
			v.Bitrate = *f.TBR
		}
		if f.DynamicRange != nil {
			v.DynamicRange = *f.DynamicRange
		}
		cat.Variants = append(cat.Variants, v)
	}
	return cat, nil
}
