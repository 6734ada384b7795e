package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/licstore/clearing-module/internal/domain/model"
	"github.com/bigkaa/licstore/clearing-module/internal/domain/perm"
	"github.com/bigkaa/licstore/clearing-module/internal/repository"
)

// fakeUploadRepo — in-memory реализация UploadRepository для тестов.
type fakeUploadRepo struct {
	uploads []*model.Upload
	err     error
}

func (r *fakeUploadRepo) Create(ctx context.Context, u *model.Upload) error { return nil }

func (r *fakeUploadRepo) GetByID(ctx context.Context, id int64) (*model.Upload, error) {
	for _, u := range r.uploads {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUploadRepo) ListByFolder(ctx context.Context, folderID, groupID int64) ([]*model.Upload, error) {
	if r.err != nil {
		return nil, r.err
	}
	var result []*model.Upload
	for _, u := range r.uploads {
		if u.FolderID == folderID && u.GroupID == groupID {
			result = append(result, u)
		}
	}
	return result, nil
}

func (r *fakeUploadRepo) LatestFilename(ctx context.Context, groupID int64) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	var latest *model.Upload
	for _, u := range r.uploads {
		if u.GroupID != groupID {
			continue
		}
		if latest == nil || u.UploadedAt.After(latest.UploadedAt) {
			latest = u
		}
	}
	if latest == nil {
		return "", repository.ErrNotFound
	}
	return latest.Filename, nil
}

func (r *fakeUploadRepo) Delete(ctx context.Context, id int64) error { return nil }

// fakeFolderRepo — in-memory реализация FolderRepository для тестов.
type fakeFolderRepo struct {
	folders []*model.Folder
	err     error
}

func (r *fakeFolderRepo) Create(ctx context.Context, f *model.Folder) error { return nil }

func (r *fakeFolderRepo) GetByID(ctx context.Context, id int64) (*model.Folder, error) {
	for _, f := range r.folders {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeFolderRepo) ListAccessible(ctx context.Context, rootFolderID int64) ([]*model.Folder, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.folders, nil
}

func (r *fakeFolderRepo) Delete(ctx context.Context, id int64) error { return nil }

// fakeLookup — подменный источник версий пакетов.
type fakeLookup struct {
	versions    map[string][]string
	descriptors map[string][]byte
}

func (l *fakeLookup) Versions(ctx context.Context, pkg string) []string {
	return l.versions[pkg]
}

func (l *fakeLookup) Descriptor(ctx context.Context, pkg, version string) []byte {
	return l.descriptors[pkg+"/"+version]
}

func ts(value string) time.Time {
	t, _ := time.Parse("2006-01-02", value)
	return t
}

func panelUser() *model.User {
	return &model.User{
		ID:             "u-1",
		Username:       "alice",
		Permission:     perm.PermWrite,
		RootFolderID:   1,
		DefaultGroupID: 7,
	}
}

func TestListUploads_CompositeKeysAndLabels(t *testing.T) {
	uploads := &fakeUploadRepo{uploads: []*model.Upload{
		{ID: 11, FolderID: 1, GroupID: 7, Filename: "zlib-1.2.13.tar.gz",
			Status: model.UploadStatusClosed, UploadedAt: ts("2026-03-15")},
		{ID: 12, FolderID: 1, GroupID: 7, Filename: "curl-8.4.0.tar.xz",
			Status: model.UploadStatusOpen, UploadedAt: ts("2026-04-02")},
		// Чужая группа не видна
		{ID: 13, FolderID: 1, GroupID: 9, Filename: "openssl-3.2.0.tar.gz",
			Status: model.UploadStatusOpen, UploadedAt: ts("2026-04-03")},
	}}
	svc := NewReuseService(uploads, &fakeFolderRepo{}, nil, false, testLogger())

	got, err := svc.ListUploads(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("ListUploads() вернул ошибку: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("ListUploads() вернул %d записей, ожидается 2: %v", len(got), got)
	}
	want := "zlib-1.2.13.tar.gz from 2026-03-15 (closed)"
	if got["11,7"] != want {
		t.Errorf("Подпись [11,7] = %q, ожидается %q", got["11,7"], want)
	}
	if _, ok := got["13,9"]; ok {
		t.Error("Загрузка чужой группы попала в список")
	}
}

func TestListPackageVersions(t *testing.T) {
	lookup := &fakeLookup{versions: map[string][]string{
		"zlib": {"1.0", "1.2", "2.0"},
	}}
	svc := NewReuseService(&fakeUploadRepo{}, &fakeFolderRepo{}, lookup, true, testLogger())

	got := svc.ListPackageVersions(context.Background(), "zlib")
	if len(got) != 3 || got[0] != "1.0" || got[2] != "2.0" {
		t.Errorf("ListPackageVersions() = %v, ожидается [1.0 1.2 2.0]", got)
	}

	// Пустое имя пакета — пустой список без обращения к реестру
	if got := svc.ListPackageVersions(context.Background(), "  "); len(got) != 0 {
		t.Errorf("ListPackageVersions(пусто) = %v, ожидается пустой список", got)
	}

	// Неизвестный пакет — пустой список
	if got := svc.ListPackageVersions(context.Background(), "no-such"); len(got) != 0 {
		t.Errorf("ListPackageVersions(неизвестный) = %v, ожидается пустой список", got)
	}
}

func TestListPackageVersions_Disabled(t *testing.T) {
	lookup := &fakeLookup{versions: map[string][]string{"zlib": {"1.0"}}}
	svc := NewReuseService(&fakeUploadRepo{}, &fakeFolderRepo{}, lookup, false, testLogger())

	if got := svc.ListPackageVersions(context.Background(), "zlib"); len(got) != 0 {
		t.Errorf("ListPackageVersions() при выключенном Osselot = %v, ожидается пустой список", got)
	}
}

func TestPanelViewModel(t *testing.T) {
	folders := &fakeFolderRepo{folders: []*model.Folder{
		{ID: 1, Name: "Software Repository"},
		{ID: 2, Name: "projects"},
	}}
	uploads := &fakeUploadRepo{uploads: []*model.Upload{
		{ID: 11, FolderID: 1, GroupID: 7, Filename: "zlib-1.2.13.tar.gz",
			Status: model.UploadStatusOpen, UploadedAt: ts("2026-03-15")},
	}}
	lookup := &fakeLookup{}
	svc := NewReuseService(uploads, folders, lookup, true, testLogger())

	panel, err := svc.PanelViewModel(context.Background(), panelUser())
	if err != nil {
		t.Fatalf("PanelViewModel() вернул ошибку: %v", err)
	}
	if panel == nil {
		t.Fatal("PanelViewModel() вернул nil для валидных данных")
	}

	if panel.FolderSelectorName != ReuseFolderSelectorName ||
		panel.FolderParameterName != ReuseFolderParameterName ||
		panel.UploadSelectorName != ReuseUploadSelectorName {
		t.Error("Имена элементов формы не совпадают с константами")
	}
	if len(panel.Folders) != 2 {
		t.Errorf("Folders = %d, ожидается 2", len(panel.Folders))
	}
	if len(panel.UploadsByFolder[1]) != 1 {
		t.Errorf("UploadsByFolder[1] = %v, ожидается одна запись", panel.UploadsByFolder[1])
	}
	if len(panel.UploadsByFolder[2]) != 0 {
		t.Errorf("UploadsByFolder[2] = %v, ожидается пустая", panel.UploadsByFolder[2])
	}
	if !panel.OsselotEnabled {
		t.Error("OsselotEnabled = false, ожидается true")
	}
	if panel.DefaultPackageName != "zlib" {
		t.Errorf("DefaultPackageName = %q, ожидается \"zlib\"", panel.DefaultPackageName)
	}
	if panel.SessionIsAdmin {
		t.Error("SessionIsAdmin = true для пользователя read_write")
	}
}

func TestPanelViewModel_AdminFlag(t *testing.T) {
	folders := &fakeFolderRepo{folders: []*model.Folder{{ID: 1, Name: "root"}}}
	svc := NewReuseService(&fakeUploadRepo{}, folders, nil, false, testLogger())

	admin := panelUser()
	admin.Permission = perm.PermAdmin

	panel, err := svc.PanelViewModel(context.Background(), admin)
	if err != nil || panel == nil {
		t.Fatalf("PanelViewModel() = %v, %v", panel, err)
	}
	if !panel.SessionIsAdmin {
		t.Error("SessionIsAdmin = false для администратора")
	}
}

func TestPanelViewModel_DegradesToNothing(t *testing.T) {
	folders := &fakeFolderRepo{err: errors.New("база недоступна")}
	svc := NewReuseService(&fakeUploadRepo{}, folders, nil, false, testLogger())

	panel, err := svc.PanelViewModel(context.Background(), panelUser())
	if err != nil {
		t.Fatalf("PanelViewModel() вернул ошибку вместо деградации: %v", err)
	}
	if panel != nil {
		t.Error("PanelViewModel() вернул панель при недоступных папках")
	}

	// Нет доступных папок — панели тоже нет
	svc2 := NewReuseService(&fakeUploadRepo{}, &fakeFolderRepo{}, nil, false, testLogger())
	panel2, err := svc2.PanelViewModel(context.Background(), panelUser())
	if err != nil || panel2 != nil {
		t.Errorf("PanelViewModel() без папок = %v, %v; ожидается (nil, nil)", panel2, err)
	}
}

func TestPanelViewModel_DefaultPackageFallback(t *testing.T) {
	folders := &fakeFolderRepo{folders: []*model.Folder{{ID: 1, Name: "root"}}}
	svc := NewReuseService(&fakeUploadRepo{}, folders, nil, false, testLogger())

	panel, err := svc.PanelViewModel(context.Background(), panelUser())
	if err != nil || panel == nil {
		t.Fatalf("PanelViewModel() = %v, %v", panel, err)
	}
	if panel.DefaultPackageName != "package" {
		t.Errorf("DefaultPackageName = %q, ожидается \"package\"", panel.DefaultPackageName)
	}
}

func TestGuessPackageName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"zlib-1.2.13.tar.gz", "zlib"},
		{"curl-8.4.0.tar.xz", "curl"},
		{"openssl-3.2.0.zip", "openssl"},
		{"busybox_1.36.1.tgz", "busybox"},
		{"libpng-v1.6.40.tar.bz2", "libpng"},
		{"project.tar.gz", "project"},
		{"noextension", "noextension"},
	}

	for _, tt := range tests {
		if got := guessPackageName(tt.filename); got != tt.want {
			t.Errorf("guessPackageName(%q) = %q, ожидается %q", tt.filename, got, tt.want)
		}
	}
}

// TestGetDescriptor — дескриптор отдаётся как есть.
func TestGetDescriptor(t *testing.T) {
	lookup := &fakeLookup{
		descriptors: map[string][]byte{"zlib/1.2.13": []byte("<doc/>")},
	}
	svc := NewReuseService(&fakeUploadRepo{}, &fakeFolderRepo{}, lookup, true, testLogger())

	data, err := svc.GetDescriptor(context.Background(), "zlib", "1.2.13")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if string(data) != "<doc/>" {
		t.Errorf("дескриптор = %q, ожидается <doc/>", data)
	}
}

// TestGetDescriptor_Unavailable — отсутствующий дескриптор и
// выключенный поиск дают ErrOsselotUnavailable.
func TestGetDescriptor_Unavailable(t *testing.T) {
	svc := NewReuseService(&fakeUploadRepo{}, &fakeFolderRepo{}, &fakeLookup{}, true, testLogger())
	if _, err := svc.GetDescriptor(context.Background(), "zlib", "9.9"); !errors.Is(err, ErrOsselotUnavailable) {
		t.Errorf("ожидалась ErrOsselotUnavailable, получено %v", err)
	}

	disabled := NewReuseService(&fakeUploadRepo{}, &fakeFolderRepo{}, &fakeLookup{}, false, testLogger())
	if _, err := disabled.GetDescriptor(context.Background(), "zlib", "1.0"); !errors.Is(err, ErrOsselotUnavailable) {
		t.Errorf("ожидалась ErrOsselotUnavailable при выключенном поиске, получено %v", err)
	}
}

// TestGetDescriptor_Validation — пустые параметры отклоняются.
func TestGetDescriptor_Validation(t *testing.T) {
	svc := NewReuseService(&fakeUploadRepo{}, &fakeFolderRepo{}, &fakeLookup{}, true, testLogger())
	if _, err := svc.GetDescriptor(context.Background(), "", "1.0"); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидалась ErrValidation для пустого пакета, получено %v", err)
	}
	if _, err := svc.GetDescriptor(context.Background(), "zlib", " "); !errors.Is(err, ErrValidation) {
		t.Errorf("ожидалась ErrValidation для пустой версии, получено %v", err)
	}
}
