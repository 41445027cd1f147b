package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	sol "github.com/gagliardetto/solana-go"
)

// Object is an upload held by MemoryUploader.
type Object struct {
	Name        string
	ContentType string
	Data        []byte
	Uploader    sol.PublicKey
}

// MemoryUploader keeps uploads in memory, addressed by content hash.
type MemoryUploader struct {
	mu      sync.Mutex
	objects map[string]Object

	// Err, when set, fails every upload.
	Err error
}

// NewMemoryUploader creates an empty uploader.
func NewMemoryUploader() *MemoryUploader {
	return &MemoryUploader{objects: make(map[string]Object)}
}

func (u *MemoryUploader) UploadFile(_ context.Context, uploader sol.PublicKey, name, contentType string, data []byte) (string, error) {
	return u.put(Object{Name: name, ContentType: contentType, Data: data, Uploader: uploader})
}

func (u *MemoryUploader) UploadJSON(_ context.Context, uploader sol.PublicKey, data []byte) (string, error) {
	return u.put(Object{Name: "metadata.json", ContentType: "application/json", Data: data, Uploader: uploader})
}

func (u *MemoryUploader) put(obj Object) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.Err != nil {
		return "", u.Err
	}
	sum := sha256.Sum256(obj.Data)
	uri := "memory://objects/" + hex.EncodeToString(sum[:])
	obj.Data = append([]byte(nil), obj.Data...)
	u.objects[uri] = obj
	return uri, nil
}

// Get returns the object stored at uri.
func (u *MemoryUploader) Get(uri string) (Object, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	obj, ok := u.objects[uri]
	return obj, ok
}

// Len returns the number of stored objects.
func (u *MemoryUploader) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.objects)
}
