package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "100", "folder": "proofs", "api_key": "key", "file": "x"})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=proofs&timestamp=100secret")))
	assert.Equal(t, want, got)
}

func TestUploadBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/auto/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "proofs", r.FormValue("folder"))
		assert.Equal(t, "1760000000", r.FormValue("timestamp"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "note.pdf", hdr.Filename)
		assert.Equal(t, "medical note", string(body))

		_, _ = io.WriteString(w, `{"public_id":"proofs/abc","secure_url":"https://res.example/abc.pdf"}`)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "proofs")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1760000000, 0) }

	res, err := c.UploadBytes(context.Background(), []byte("medical note"), "note.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://res.example/abc.pdf", res.SecureURL)
}

func TestUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.UploadBase64(context.Background(), "data:image/png;base64,AAAA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
