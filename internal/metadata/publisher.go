// Package metadata publishes the off-chain record a mint's URI points at:
// the image first, then a JSON document referencing it.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"transfer-hook-lab/internal/domain"
	"transfer-hook-lab/internal/observability"
)

// Uploader stores objects and returns a dereferenceable location. The
// uploader identity is the signer's public key.
type Uploader interface {
	UploadFile(ctx context.Context, uploader sol.PublicKey, name, contentType string, data []byte) (string, error)
	UploadJSON(ctx context.Context, uploader sol.PublicKey, data []byte) (string, error)
}

// Inputs describe the asset to publish.
type Inputs struct {
	Name        string
	Symbol      string
	Description string
	ImagePath   string
}

// Record is the published off-chain metadata. Only URI is bound on-chain.
type Record struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URI         string `json:"uri"`
}

// Document is the JSON body the URI resolves to.
type Document struct {
	Name        string     `json:"name"`
	Symbol      string     `json:"symbol"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Properties  Properties `json:"properties"`
}

// Properties lists the files of the asset.
type Properties struct {
	Category string `json:"category,omitempty"`
	Files    []File `json:"files"`
}

// File is one asset file.
type File struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// Publisher uploads the asset and its document.
type Publisher struct {
	uploader Uploader
	backend  string
	logger   *zap.Logger
}

// NewPublisher creates a publisher. backend labels upload metrics.
func NewPublisher(uploader Uploader, backend string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{uploader: uploader, backend: backend, logger: logger}
}

// Publish uploads the image at in.ImagePath and then the JSON document.
// Upload errors are not retried and wrap domain.ErrUploadFailure.
func (p *Publisher) Publish(ctx context.Context, signer sol.PublicKey, in Inputs) (*Record, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Symbol) == "" {
		return nil, fmt.Errorf("name and symbol are required")
	}
	image, err := os.ReadFile(in.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	contentType := mimetype.Detect(image).String()

	imageURI, err := p.uploader.UploadFile(ctx, signer, filepath.Base(in.ImagePath), contentType, image)
	observability.RecordUpload(p.backend, len(image), err)
	if err != nil {
		return nil, fmt.Errorf("%w: image: %w", domain.ErrUploadFailure, err)
	}
	p.logger.Info("image uploaded",
		zap.String("uri", imageURI),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(image)),
	)

	doc := Document{
		Name:        in.Name,
		Symbol:      in.Symbol,
		Description: in.Description,
		Image:       imageURI,
		Properties: Properties{
			Category: category(contentType),
			Files:    []File{{URI: imageURI, Type: contentType}},
		},
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode metadata document: %w", err)
	}

	uri, err := p.uploader.UploadJSON(ctx, signer, body)
	observability.RecordUpload(p.backend, len(body), err)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata document: %w", domain.ErrUploadFailure, err)
	}
	p.logger.Info("metadata uploaded", zap.String("uri", uri))

	return &Record{
		Name:        in.Name,
		Symbol:      in.Symbol,
		Description: in.Description,
		Image:       imageURI,
		URI:         uri,
	}, nil
}

func category(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "video/"):
		return "video"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	default:
		return ""
	}
}
