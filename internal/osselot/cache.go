package osselot

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// DescriptorTTL — срок свежести закэшированного дескриптора, секунды.
const DescriptorTTL = 86400 * time.Second

// Расширение файлов кэша дескрипторов.
const cacheExt = ".rdf"

// sanitizeRe — допустимые символы имени файла кэша; остальные
// заменяются подчёркиванием.
var sanitizeRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// FileCache — файловый кэш XML-дескрипторов Osselot.
// Файл кэша: {san(pkg)}_{san(ver)}.rdf в каталоге dir.
type FileCache struct {
	dir string
	ttl time.Duration
}

// NewFileCache создаёт файловый кэш в каталоге dir.
// Каталог создаётся при необходимости.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("создание каталога кэша %s: %w", dir, err)
	}
	return &FileCache{dir: dir, ttl: DescriptorTTL}, nil
}

// Path возвращает путь файла кэша для пакета и версии.
func (c *FileCache) Path(pkg, version string) string {
	name := sanitize(pkg) + "_" + sanitize(version) + cacheExt
	return filepath.Join(c.dir, name)
}

// Get возвращает закэшированный дескриптор, если файл существует и не
// старше TTL. Второй результат — признак попадания.
func (c *FileCache) Get(pkg, version string) ([]byte, bool) {
	path := c.Path(pkg, version)

	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put сохраняет дескриптор в кэш. Запись атомарна: данные пишутся во
// временный файл и переименовываются, частично записанный файл никогда
// не виден читателям.
func (c *FileCache) Put(pkg, version string, data []byte) error {
	path := c.Path(pkg, version)

	tmp, err := os.CreateTemp(c.dir, "descriptor-*.tmp")
	if err != nil {
		return fmt.Errorf("создание временного файла кэша: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("запись в кэш %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("закрытие файла кэша %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("переименование файла кэша %s: %w", path, err)
	}
	return nil
}

// Clear удаляет все файлы дескрипторов из каталога кэша.
// Возвращает количество удалённых файлов.
func (c *FileCache) Clear() (int, error) {
	matches, err := filepath.Glob(filepath.Join(c.dir, "*"+cacheExt))
	if err != nil {
		return 0, fmt.Errorf("обход каталога кэша: %w", err)
	}

	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("удаление %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}

// sanitize заменяет недопустимые для имени файла символы подчёркиванием.
func sanitize(s string) string {
	return sanitizeRe.ReplaceAllString(s, "_")
}
