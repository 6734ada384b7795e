package osselot

import (
	"context"
	"log/slog"
	"sort"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики кэшей Osselot.
var (
	versionsCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_osselot_versions_cache_hits_total",
		Help: "Количество попаданий в кэш списков версий Osselot",
	})
	versionsCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_osselot_versions_cache_misses_total",
		Help: "Количество промахов кэша списков версий Osselot",
	})
	descriptorCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_osselot_descriptor_cache_hits_total",
		Help: "Количество попаданий в файловый кэш дескрипторов Osselot",
	})
	descriptorCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_osselot_descriptor_cache_misses_total",
		Help: "Количество промахов файлового кэша дескрипторов Osselot",
	})
)

// VersionLister — источник списков версий пакетов (реализуется Client).
type VersionLister interface {
	ListVersions(ctx context.Context, pkg string) ([]string, error)
}

// DescriptorFetcher — источник XML-дескрипторов (реализуется Client).
type DescriptorFetcher interface {
	FetchDescriptor(ctx context.Context, pkg, version string) ([]byte, error)
}

// LookupHelper — помощник поиска в реестре Osselot. Оборачивает клиент
// двумя кэшами: in-memory LRU для списков версий и файловым для
// дескрипторов. Ошибки удалённого сервиса не распространяются наружу:
// наружу уходит пустой список или отсутствующий дескриптор, детали —
// в лог.
type LookupHelper struct {
	lister   VersionLister
	fetcher  DescriptorFetcher
	cache    *FileCache
	versions *expirable.LRU[string, []string]
	logger   *slog.Logger
}

// NewLookupHelper создаёт помощник поиска Osselot.
func NewLookupHelper(
	lister VersionLister,
	fetcher DescriptorFetcher,
	cache *FileCache,
	lruSize int,
	lruTTL time.Duration,
	logger *slog.Logger,
) *LookupHelper {
	return &LookupHelper{
		lister:   lister,
		fetcher:  fetcher,
		cache:    cache,
		versions: expirable.NewLRU[string, []string](lruSize, nil, lruTTL),
		logger:   logger.With(slog.String("component", "osselot_lookup")),
	}
}

// Versions возвращает известные реестру версии пакета в естественном
// порядке, без дубликатов. При недоступности реестра возвращается
// пустой список; неудачные ответы не кэшируются.
func (h *LookupHelper) Versions(ctx context.Context, pkg string) []string {
	if cached, ok := h.versions.Get(pkg); ok {
		versionsCacheHits.Inc()
		return cached
	}
	versionsCacheMisses.Inc()

	raw, err := h.lister.ListVersions(ctx, pkg)
	if err != nil {
		h.logger.Warn("Не удалось получить версии из Osselot",
			slog.String("package", pkg),
			slog.String("error", err.Error()),
		)
		return nil
	}

	result := sortVersions(raw)
	h.versions.Add(pkg, result)
	return result
}

// Descriptor возвращает XML-дескриптор анализа пакета. Сначала
// проверяется файловый кэш; при промахе дескриптор запрашивается у
// реестра и сохраняется. При любой ошибке возвращается nil.
func (h *LookupHelper) Descriptor(ctx context.Context, pkg, version string) []byte {
	if data, ok := h.cache.Get(pkg, version); ok {
		descriptorCacheHits.Inc()
		return data
	}
	descriptorCacheMisses.Inc()

	data, err := h.fetcher.FetchDescriptor(ctx, pkg, version)
	if err != nil {
		h.logger.Warn("Не удалось получить дескриптор из Osselot",
			slog.String("package", pkg),
			slog.String("version", version),
			slog.String("error", err.Error()),
		)
		return nil
	}

	if err := h.cache.Put(pkg, version, data); err != nil {
		// Дескриптор получен, кэш не обязателен
		h.logger.Warn("Не удалось сохранить дескриптор в кэш",
			slog.String("package", pkg),
			slog.String("version", version),
			slog.String("error", err.Error()),
		)
	}
	return data
}

// ClearCache очищает оба кэша: файловый и in-memory.
// Возвращает количество удалённых файлов дескрипторов.
func (h *LookupHelper) ClearCache() (int, error) {
	h.versions.Purge()
	return h.cache.Clear()
}

// sortVersions упорядочивает версии естественным образом (1.2 < 1.10)
// и убирает дубликаты. Версии, не разбираемые как семантические,
// идут после разбираемых в лексикографическом порядке.
func sortVersions(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var parsed []*goversion.Version
	var unparsed []string

	for _, v := range raw {
		if seen[v] {
			continue
		}
		seen[v] = true
		if pv, err := goversion.NewVersion(v); err == nil {
			parsed = append(parsed, pv)
		} else {
			unparsed = append(unparsed, v)
		}
	}

	sort.Sort(goversion.Collection(parsed))
	sort.Strings(unparsed)

	result := make([]string, 0, len(parsed)+len(unparsed))
	for _, pv := range parsed {
		result = append(result, pv.Original())
	}
	return append(result, unparsed...)
}
