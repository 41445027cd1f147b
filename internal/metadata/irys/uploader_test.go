package irys

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPUploader_UploadFile(t *testing.T) {
	signer := sol.NewWallet().PublicKey()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload/file", r.URL.Path)
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		assert.Equal(t, "cookie.png", r.Header.Get("X-File-Name"))
		assert.Equal(t, signer.String(), r.Header.Get("X-Uploader"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, body)
		w.Write([]byte(`{"uri":"https://gateway.irys.xyz/img"}`))
	}))
	defer server.Close()

	u := NewHTTPUploader(server.URL+"/", "secret")
	uri, err := u.UploadFile(context.Background(), signer, "cookie.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.irys.xyz/img", uri)
}

func TestHTTPUploader_UploadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/json", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"uri":"https://gateway.irys.xyz/doc"}`))
	}))
	defer server.Close()

	uri, err := NewHTTPUploader(server.URL, "").UploadJSON(context.Background(), sol.PublicKey{}, []byte(`{"name":"Cookie"}`))
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.irys.xyz/doc", uri)
}

func TestHTTPUploader_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, `bad gateway`},
		{"bad json", http.StatusOK, `not json`},
		{"empty uri", http.StatusOK, `{"uri":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewHTTPUploader(server.URL, "").UploadJSON(context.Background(), sol.PublicKey{}, []byte(`{}`))
			require.Error(t, err)
		})
	}
}

func TestHTTPUploader_NotConfigured(t *testing.T) {
	_, err := NewHTTPUploader("", "").UploadJSON(context.Background(), sol.PublicKey{}, []byte(`{}`))
	require.Error(t, err)

	_, err = NewHTTPUploader("http://localhost", "").UploadFile(context.Background(), sol.PublicKey{}, "a", "b", nil)
	require.Error(t, err)
}
