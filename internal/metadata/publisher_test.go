package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transfer-hook-lab/internal/domain"
)

// writeCookie writes a 64x64 PNG and returns its path.
func writeCookie(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: 196, G: 140, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	path := filepath.Join(t.TempDir(), "cookie.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestPublish(t *testing.T) {
	up := NewMemoryUploader()
	p := NewPublisher(up, "memory", nil)
	signer := sol.NewWallet().PublicKey()

	rec, err := p.Publish(context.Background(), signer, Inputs{
		Name:        "Cookie",
		Symbol:      "COOKIE",
		Description: "A cool cookie",
		ImagePath:   writeCookie(t),
	})
	require.NoError(t, err)

	u, err := url.Parse(rec.URI)
	require.NoError(t, err)
	assert.NotEmpty(t, u.Scheme)
	assert.Equal(t, 2, up.Len())

	img, ok := up.Get(rec.Image)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, "cookie.png", img.Name)
	assert.Equal(t, signer, img.Uploader)

	obj, ok := up.Get(rec.URI)
	require.True(t, ok)
	var doc Document
	require.NoError(t, json.Unmarshal(obj.Data, &doc))
	assert.Equal(t, "A cool cookie", doc.Description)
	assert.Equal(t, rec.Image, doc.Image)
	assert.Equal(t, "image", doc.Properties.Category)
	require.Len(t, doc.Properties.Files, 1)
	assert.Equal(t, "image/png", doc.Properties.Files[0].Type)
}

func TestPublish_UploadFailure(t *testing.T) {
	up := NewMemoryUploader()
	up.Err = errors.New("gateway timeout")

	_, err := NewPublisher(up, "memory", nil).Publish(context.Background(), sol.NewWallet().PublicKey(), Inputs{
		Name: "Cookie", Symbol: "COOKIE", ImagePath: writeCookie(t),
	})
	require.ErrorIs(t, err, domain.ErrUploadFailure)
	assert.Equal(t, 0, up.Len())
}

// failJSON accepts files but rejects documents.
type failJSON struct{ *MemoryUploader }

func (failJSON) UploadJSON(context.Context, sol.PublicKey, []byte) (string, error) {
	return "", errors.New("413 payload too large")
}

func TestPublish_DocumentUploadFailure(t *testing.T) {
	up := failJSON{NewMemoryUploader()}
	_, err := NewPublisher(up, "memory", nil).Publish(context.Background(), sol.NewWallet().PublicKey(), Inputs{
		Name: "Cookie", Symbol: "COOKIE", ImagePath: writeCookie(t),
	})
	require.ErrorIs(t, err, domain.ErrUploadFailure)
	assert.Contains(t, err.Error(), "metadata document")
}

func TestPublish_Validation(t *testing.T) {
	p := NewPublisher(NewMemoryUploader(), "memory", nil)

	_, err := p.Publish(context.Background(), sol.PublicKey{}, Inputs{Symbol: "X", ImagePath: writeCookie(t)})
	require.Error(t, err)

	_, err = p.Publish(context.Background(), sol.PublicKey{}, Inputs{Name: "X", Symbol: "X", ImagePath: "/does/not/exist.png"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUploadFailure)
}
