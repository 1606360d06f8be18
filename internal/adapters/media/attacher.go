package media

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"dm-sender/internal/domain"
	"dm-sender/internal/infra/metrics"
)

// Attacher подбирает и загружает изображения для рассылки. Любая
// неудача с медиа деградирует отправку до текстовой, но не прерывает её.
type Attacher struct {
	gateway  domain.MessagingGateway
	dir      string
	maxBytes int64
	formats  map[string]struct{}
	log      zerolog.Logger
	randIntn func(int) int
}

// NewAttacher создаёт адаптер вложений.
func NewAttacher(gw domain.MessagingGateway, dir string, maxSizeMB float64, formats []string, log zerolog.Logger) *Attacher {
	set := make(map[string]struct{}, len(formats))
	for _, f := range formats {
		set[strings.ToLower(strings.TrimPrefix(f, "."))] = struct{}{}
	}
	return &Attacher{
		gateway:  gw,
		dir:      dir,
		maxBytes: int64(maxSizeMB * 1024 * 1024),
		formats:  set,
		log:      log,
		randIntn: rand.Intn,
	}
}

// Resolve ищет файл: сперва внутри каталога изображений, затем по
// самостоятельному пути.
func (a *Attacher) Resolve(imageRef string) (string, bool) {
	if imageRef == "" {
		return "", false
	}
	joined := filepath.Join(a.dir, imageRef)
	if _, err := os.Stat(joined); err == nil {
		return joined, true
	}
	if _, err := os.Stat(imageRef); err == nil {
		return imageRef, true
	}
	a.log.Warn().Str("image", imageRef).Msg("файл изображения не найден")
	return "", false
}

// PickRandom равновероятно выбирает файл поддерживаемого формата из
// каталога изображений.
func (a *Attacher) PickRandom() (string, bool) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		a.log.Warn().Err(err).Str("dir", a.dir).Msg("каталог изображений недоступен")
		return "", false
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(e.Name()), "."))
		if _, ok := a.formats[ext]; ok {
			files = append(files, filepath.Join(a.dir, e.Name()))
		}
	}
	if len(files) == 0 {
		a.log.Warn().Str("dir", a.dir).Msg("в каталоге нет подходящих изображений")
		return "", false
	}
	return files[a.randIntn(len(files))], true
}

// Upload проверяет размер файла и отдаёт его шлюзу.
func (a *Attacher) Upload(ctx context.Context, path string) (domain.MediaHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		metrics.MediaUploadErrors.Inc()
		return "", fmt.Errorf("файл недоступен: %w", err)
	}
	if info.Size() > a.maxBytes {
		metrics.MediaUploadErrors.Inc()
		return "", fmt.Errorf("файл %s превышает лимит: %.2f МБ", path, float64(info.Size())/(1024*1024))
	}
	handle, err := a.gateway.UploadMedia(ctx, path)
	if err != nil {
		metrics.MediaUploadErrors.Inc()
		return "", err
	}
	a.log.Debug().Str("path", path).Str("media", string(handle)).Msg("изображение загружено")
	return handle, nil
}
