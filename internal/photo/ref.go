package photo

import "sync"

// Ref is a displayable reference to a photo: either bytes held in memory
// from the local blob, or a time-limited signed URL served remotely.
// Local refs must be released when the owning view is discarded so bytes
// do not accumulate across navigation.
type Ref struct {
	PhotoID string
	URL     string

	mu   sync.Mutex
	data []byte
}

func newLocalRef(photoID string, data []byte) *Ref {
	return &Ref{PhotoID: photoID, data: data}
}

func newRemoteRef(photoID, url string) *Ref {
	return &Ref{PhotoID: photoID, URL: url}
}

// Local reports whether the ref holds bytes in memory.
func (r *Ref) Local() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data != nil
}

// Bytes returns the in-memory payload, or nil for remote refs and released
// local refs.
func (r *Ref) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}

// Release drops the in-memory payload. Releasing twice, or releasing a
// remote ref, is harmless.
func (r *Ref) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = nil
}
