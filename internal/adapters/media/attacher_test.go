package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"dm-sender/internal/domain"
)

type stubGateway struct {
	uploaded []string
	failWith error
}

func (s *stubGateway) Authenticate(context.Context) error { return nil }
func (s *stubGateway) UploadMedia(_ context.Context, path string) (domain.MediaHandle, error) {
	if s.failWith != nil {
		return "", s.failWith
	}
	s.uploaded = append(s.uploaded, path)
	return domain.MediaHandle("media-1"), nil
}
func (s *stubGateway) SendDirectMessage(context.Context, string, string, domain.MediaHandle) error {
	return nil
}

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(strings.Repeat("x", size)), 0o644); err != nil {
		t.Fatalf("запись файла: %v", err)
	}
	return path
}

func newAttacher(t *testing.T, gw domain.MessagingGateway, dir string) *Attacher {
	t.Helper()
	return NewAttacher(gw, dir, 5.0, []string{"jpg", "jpeg", "png", "gif", "webp"}, zerolog.Nop())
}

func TestResolvePrefersImagesDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "morning.jpg", 10)
	a := newAttacher(t, &stubGateway{}, dir)

	path, ok := a.Resolve("morning.jpg")
	if !ok || path != filepath.Join(dir, "morning.jpg") {
		t.Fatalf("ожидали путь внутри каталога, получили %q ok=%v", path, ok)
	}
}

func TestResolveFallsBackToStandalonePath(t *testing.T) {
	outside := writeFile(t, t.TempDir(), "extra.png", 10)
	a := newAttacher(t, &stubGateway{}, filepath.Join(t.TempDir(), "missing"))

	path, ok := a.Resolve(outside)
	if !ok || path != outside {
		t.Fatalf("ожидали самостоятельный путь, получили %q ok=%v", path, ok)
	}
}

func TestResolveMissingFile(t *testing.T) {
	a := newAttacher(t, &stubGateway{}, t.TempDir())
	if _, ok := a.Resolve("nope.jpg"); ok {
		t.Fatalf("не ожидали найти отсутствующий файл")
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	a := NewAttacher(&stubGateway{}, dir, 0.0001, []string{"jpg"}, zerolog.Nop())
	big := writeFile(t, dir, "big.jpg", 1024)

	if _, err := a.Upload(context.Background(), big); err == nil {
		t.Fatalf("ожидали ошибку на превышение лимита")
	}
}

func TestUploadDelegatesToGateway(t *testing.T) {
	dir := t.TempDir()
	gw := &stubGateway{}
	a := newAttacher(t, gw, dir)
	path := writeFile(t, dir, "ok.jpg", 16)

	handle, err := a.Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if handle != "media-1" || len(gw.uploaded) != 1 {
		t.Fatalf("шлюз должен был получить файл: handle=%q uploads=%v", handle, gw.uploaded)
	}
}

func TestPickRandomFiltersUnsupportedFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", 4)
	writeFile(t, dir, "photo.webp", 4)
	a := newAttacher(t, &stubGateway{}, dir)

	path, ok := a.PickRandom()
	if !ok || filepath.Ext(path) != ".webp" {
		t.Fatalf("ожидали единственный webp, получили %q ok=%v", path, ok)
	}
}

func TestPickRandomMissingDirectory(t *testing.T) {
	a := newAttacher(t, &stubGateway{}, filepath.Join(t.TempDir(), "ghost"))
	if _, ok := a.PickRandom(); ok {
		t.Fatalf("не ожидали выбор из отсутствующего каталога")
	}
}
