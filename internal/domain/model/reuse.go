package model

// ReusePanel — view-model панели переиспользования клиринговых решений.
// Формируется на сервере и отдаётся UI как JSON. Если данные для панели
// получить не удалось, панель не отдаётся вовсе.
type ReusePanel struct {
	// FolderSelectorName — имя элемента выбора папки в форме
	FolderSelectorName string `json:"folderSelectorName"`
	// FolderParameterName — имя параметра запроса с выбранной папкой
	FolderParameterName string `json:"folderParameterName"`
	// UploadSelectorName — имя элемента выбора загрузки в форме
	UploadSelectorName string `json:"uploadSelectorName"`
	// Folders — доступные пользователю папки
	Folders []Folder `json:"folders"`
	// UploadsByFolder — для каждой папки: составной ключ "uploadId,groupId" →
	// человекочитаемая подпись загрузки
	UploadsByFolder map[int64]map[string]string `json:"uploadsByFolder"`
	// OsselotEnabled — доступен ли поиск в реестре Osselot
	OsselotEnabled bool `json:"osselotEnabled"`
	// DefaultPackageName — предзаполненное имя пакета для поиска
	DefaultPackageName string `json:"defaultPackageName"`
	// SessionIsAdmin — является ли текущий пользователь администратором
	SessionIsAdmin bool `json:"sessionIsAdmin"`
}
