package auth_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/micro-nova/btplayer/internal/auth"
)

func writeKeys(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "api_keys.json"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile api_keys.json: %v", err)
	}
}

func newService(t *testing.T, dir string) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(dir)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(svc *auth.Service, target string, header string) int {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set("X-API-Key", header)
	}
	rec := httptest.NewRecorder()
	svc.Middleware(okHandler).ServeHTTP(rec, req)
	return rec.Code
}

func TestService_OpenMode(t *testing.T) {
	svc := newService(t, t.TempDir())
	if !svc.IsOpenMode() {
		t.Error("IsOpenMode() = false with no keys file")
	}
	if svc.VerifyKey("") || svc.VerifyKey("anything") {
		t.Error("VerifyKey accepted a key with no keys configured")
	}
	if code := serve(svc, "/api/status", ""); code != http.StatusOK {
		t.Errorf("open mode status = %d", code)
	}
}

func TestService_NoConfigDir_IsOpen(t *testing.T) {
	svc := newService(t, "")
	if !svc.IsOpenMode() {
		t.Error("empty config dir is not open mode")
	}
}

func TestMiddleware_RequiresKey(t *testing.T) {
	dir := t.TempDir()
	writeKeys(t, dir, `[{"name": "phone", "key": "s3cret"}]`)
	svc := newService(t, dir)

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"no key", "/api/status", "", http.StatusUnauthorized},
		{"wrong key", "/api/status", "nope", http.StatusUnauthorized},
		{"header key", "/api/status", "s3cret", http.StatusOK},
		{"query key", "/api/status?api-key=s3cret", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := serve(svc, tt.target, tt.header); code != tt.want {
				t.Errorf("status = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestService_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	writeKeys(t, dir, "{not json")
	if _, err := auth.NewService(dir); err == nil {
		t.Error("NewService accepted a corrupt keys file")
	}
}

func TestService_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	svc := newService(t, dir)

	writeKeys(t, dir, `[{"name": "a", "key": "k1"}]`)
	deadline := time.Now().Add(3 * time.Second)
	for !svc.VerifyKey("k1") && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if !svc.VerifyKey("k1") {
		t.Fatal("key file change not picked up")
	}

	if err := svc.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if svc.IsOpenMode() {
		t.Error("open mode after keys were added")
	}
}
