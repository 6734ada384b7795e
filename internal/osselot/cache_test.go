package osselot

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileCache_PutGet(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() вернул ошибку: %v", err)
	}

	data := []byte(`<rdf/>`)
	if err := cache.Put("zlib", "1.2.13", data); err != nil {
		t.Fatalf("Put() вернул ошибку: %v", err)
	}

	got, ok := cache.Get("zlib", "1.2.13")
	if !ok {
		t.Fatal("Get() промахнулся сразу после Put()")
	}
	if string(got) != string(data) {
		t.Errorf("Get() = %q, ожидается %q", got, data)
	}
}

func TestFileCache_GetMiss(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() вернул ошибку: %v", err)
	}

	if _, ok := cache.Get("zlib", "1.2.13"); ok {
		t.Error("Get() вернул попадание для пустого кэша")
	}
}

func TestFileCache_TTLExpiry(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() вернул ошибку: %v", err)
	}

	if err := cache.Put("zlib", "1.2.13", []byte(`<rdf/>`)); err != nil {
		t.Fatalf("Put() вернул ошибку: %v", err)
	}

	// Состариваем файл за пределы TTL
	stale := time.Now().Add(-DescriptorTTL - time.Minute)
	if err := os.Chtimes(cache.Path("zlib", "1.2.13"), stale, stale); err != nil {
		t.Fatalf("Chtimes() вернул ошибку: %v", err)
	}

	if _, ok := cache.Get("zlib", "1.2.13"); ok {
		t.Error("Get() вернул попадание для просроченной записи")
	}
}

func TestFileCache_Path(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache() вернул ошибку: %v", err)
	}

	// Недопустимые символы заменяются подчёркиванием
	got := cache.Path("libs/zlib", "1.2.13+deb@1")
	want := filepath.Join(dir, "libs_zlib_1.2.13_deb_1.rdf")
	if got != want {
		t.Errorf("Path() = %q, ожидается %q", got, want)
	}
}

// Разные пары пакет/версия могут дать одно имя файла: подчёркивание —
// одновременно разделитель и замена недопустимых символов. Запись
// затирает запись, данные не смешиваются.
func TestFileCache_KeyCollision(t *testing.T) {
	cache, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() вернул ошибку: %v", err)
	}

	if cache.Path("a_b", "1.0") != cache.Path("a", "b_1.0") {
		t.Fatal("Ожидалось совпадение путей для коллизирующих пар")
	}

	if err := cache.Put("a_b", "1.0", []byte(`<first/>`)); err != nil {
		t.Fatalf("Put() вернул ошибку: %v", err)
	}
	if err := cache.Put("a", "b_1.0", []byte(`<second/>`)); err != nil {
		t.Fatalf("Put() вернул ошибку: %v", err)
	}

	got, ok := cache.Get("a_b", "1.0")
	if !ok {
		t.Fatal("Get() промахнулся после Put()")
	}
	if string(got) != `<second/>` {
		t.Errorf("Get() = %q, ожидается запись последнего Put()", got)
	}
}

func TestFileCache_Clear(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache() вернул ошибку: %v", err)
	}

	cache.Put("zlib", "1.2.13", []byte(`<a/>`))
	cache.Put("curl", "8.4.0", []byte(`<b/>`))

	// Посторонний файл в каталоге кэша не трогаем
	foreign := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(foreign, []byte("keep"), 0o644); err != nil {
		t.Fatalf("Создание постороннего файла: %v", err)
	}

	removed, err := cache.Clear()
	if err != nil {
		t.Fatalf("Clear() вернул ошибку: %v", err)
	}
	if removed != 2 {
		t.Errorf("Clear() удалил %d файлов, ожидается 2", removed)
	}

	if _, ok := cache.Get("zlib", "1.2.13"); ok {
		t.Error("Get() вернул попадание после Clear()")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Error("Clear() удалил посторонний файл")
	}
}

func TestFileCache_AtomicPut(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewFileCache(dir)
	if err != nil {
		t.Fatalf("NewFileCache() вернул ошибку: %v", err)
	}

	if err := cache.Put("zlib", "1.2.13", []byte(`<rdf/>`)); err != nil {
		t.Fatalf("Put() вернул ошибку: %v", err)
	}

	// Временных файлов после записи не остаётся
	tmps, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if err != nil {
		t.Fatalf("Glob() вернул ошибку: %v", err)
	}
	if len(tmps) != 0 {
		t.Errorf("После Put() остались временные файлы: %v", tmps)
	}
}
