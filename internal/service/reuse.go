// reuse.go — сервис переиспользования клиринговых решений:
// списки загрузок для выбора источника, версии пакетов из реестра
// Osselot и view-model панели переиспользования.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bigkaa/licstore/clearing-module/internal/domain/model"
	"github.com/bigkaa/licstore/clearing-module/internal/domain/perm"
	"github.com/bigkaa/licstore/clearing-module/internal/repository"
)

// Имена элементов формы панели переиспользования. UI строит форму
// по этим именам, сервер по ним же читает параметры запроса.
const (
	ReuseFolderSelectorName  = "reuseFolderSelector"
	ReuseFolderParameterName = "reuseFolder"
	ReuseUploadSelectorName  = "uploadToReuse"
)

// Имя пакета по умолчанию, когда угадать его по загрузкам не удалось.
const fallbackPackageName = "package"

// VersionLookup — источник данных реестра Osselot (osselot.LookupHelper).
type VersionLookup interface {
	// Versions возвращает известные версии пакета; пустой список при сбое.
	Versions(ctx context.Context, pkg string) []string
	// Descriptor возвращает XML-дескриптор пакета; nil при сбое.
	Descriptor(ctx context.Context, pkg, version string) []byte
}

// ReuseService — сервис переиспользования клиринговых решений.
type ReuseService struct {
	uploadRepo     repository.UploadRepository
	folderRepo     repository.FolderRepository
	lookup         VersionLookup
	osselotEnabled bool
	logger         *slog.Logger
}

// NewReuseService создаёт сервис переиспользования.
// lookup может быть nil, когда поиск Osselot выключен.
func NewReuseService(
	uploadRepo repository.UploadRepository,
	folderRepo repository.FolderRepository,
	lookup VersionLookup,
	osselotEnabled bool,
	logger *slog.Logger,
) *ReuseService {
	return &ReuseService{
		uploadRepo:     uploadRepo,
		folderRepo:     folderRepo,
		lookup:         lookup,
		osselotEnabled: osselotEnabled && lookup != nil,
		logger:         logger.With(slog.String("component", "reuse_service")),
	}
}

// ListUploads возвращает загрузки папки, доступные группе, как
// отображение составного ключа "uploadId,groupId" в подпись
// "имя_файла from дата (статус)".
func (s *ReuseService) ListUploads(ctx context.Context, folderID, groupID int64) (map[string]string, error) {
	uploads, err := s.uploadRepo.ListByFolder(ctx, folderID, groupID)
	if err != nil {
		return nil, fmt.Errorf("получение загрузок папки %d: %w", folderID, err)
	}

	result := make(map[string]string, len(uploads))
	for _, u := range uploads {
		key := fmt.Sprintf("%d,%d", u.ID, u.GroupID)
		result[key] = fmt.Sprintf("%s from %s (%s)",
			u.Filename, u.UploadedAt.Format("2006-01-02"), u.Status)
	}
	return result, nil
}

// ListPackageVersions возвращает версии пакета, известные реестру
// Osselot. При выключенном поиске, пустом имени пакета или
// недоступности реестра возвращается пустой список.
func (s *ReuseService) ListPackageVersions(ctx context.Context, pkg string) []string {
	if !s.osselotEnabled {
		return nil
	}
	pkg = strings.TrimSpace(pkg)
	if pkg == "" {
		return nil
	}
	return s.lookup.Versions(ctx, pkg)
}

// GetDescriptor возвращает XML-дескриптор версии пакета из реестра
// Osselot. В отличие от списков версий отсутствие дескриптора —
// ошибка: вызывающий запросил конкретный документ.
func (s *ReuseService) GetDescriptor(ctx context.Context, pkg, version string) ([]byte, error) {
	pkg = strings.TrimSpace(pkg)
	version = strings.TrimSpace(version)
	if pkg == "" || version == "" {
		return nil, fmt.Errorf("%w: требуются имя пакета и версия", ErrValidation)
	}
	if !s.osselotEnabled {
		return nil, fmt.Errorf("%w: поиск Osselot выключен", ErrOsselotUnavailable)
	}
	data := s.lookup.Descriptor(ctx, pkg, version)
	if data == nil {
		return nil, fmt.Errorf("%w: дескриптор %s/%s не получен", ErrOsselotUnavailable, pkg, version)
	}
	return data, nil
}

// PanelViewModel собирает view-model панели переиспользования для
// пользователя. Если данные панели получить не удалось, возвращается
// (nil, nil): UI просто не показывает панель.
func (s *ReuseService) PanelViewModel(ctx context.Context, user *model.User) (*model.ReusePanel, error) {
	folders, err := s.folderRepo.ListAccessible(ctx, user.RootFolderID)
	if err != nil {
		s.logger.Warn("Панель переиспользования недоступна: не удалось получить папки",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	if len(folders) == 0 {
		return nil, nil
	}

	uploadsByFolder := make(map[int64]map[string]string, len(folders))
	panelFolders := make([]model.Folder, 0, len(folders))
	for _, f := range folders {
		uploads, err := s.ListUploads(ctx, f.ID, user.DefaultGroupID)
		if err != nil {
			s.logger.Warn("Не удалось получить загрузки папки",
				slog.Int64("folder_id", f.ID),
				slog.String("error", err.Error()),
			)
			uploads = map[string]string{}
		}
		uploadsByFolder[f.ID] = uploads
		panelFolders = append(panelFolders, *f)
	}

	return &model.ReusePanel{
		FolderSelectorName:  ReuseFolderSelectorName,
		FolderParameterName: ReuseFolderParameterName,
		UploadSelectorName:  ReuseUploadSelectorName,
		Folders:             panelFolders,
		UploadsByFolder:     uploadsByFolder,
		OsselotEnabled:      s.osselotEnabled,
		DefaultPackageName:  s.defaultPackageName(ctx, user.DefaultGroupID),
		SessionIsAdmin:      user.Permission.AtLeast(perm.PermAdmin),
	}, nil
}

// defaultPackageName угадывает имя пакета для предзаполнения поиска по
// последней загрузке группы. Без загрузок используется имя по умолчанию.
func (s *ReuseService) defaultPackageName(ctx context.Context, groupID int64) string {
	filename, err := s.uploadRepo.LatestFilename(ctx, groupID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Не удалось получить последнюю загрузку",
				slog.Int64("group_id", groupID),
				slog.String("error", err.Error()),
			)
		}
		return fallbackPackageName
	}
	if name := guessPackageName(filename); name != "" {
		return name
	}
	return fallbackPackageName
}

// Суффиксы архивов, отбрасываемые при угадывании имени пакета.
var archiveSuffixes = []string{
	".tar.gz", ".tar.xz", ".tar.bz2", ".tar.zst", ".tgz", ".txz",
	".tar", ".zip", ".gz", ".xz", ".bz2",
}

// versionTailRe — хвост "-1.2.13" или "_1.2.13" в имени файла.
var versionTailRe = regexp.MustCompile(`[-_]v?\d[\w.]*$`)

// guessPackageName выделяет имя пакета из имени загруженного файла:
// "zlib-1.2.13.tar.gz" → "zlib".
func guessPackageName(filename string) string {
	name := filename
	lower := strings.ToLower(name)
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			name = name[:len(name)-len(suffix)]
			break
		}
	}
	name = versionTailRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}
