// reuse.go — обработчики панели переиспользования клиринговых решений.
// /api/v1/reuse/ajax — AJAX-действия панели (параметр do)
// /api/v1/reuse/panel — view-model панели
// /api/v1/osselot/descriptor — XML-дескриптор версии пакета
// /api/v1/osselot/cache — очистка кэша дескрипторов Osselot
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	apierrors "github.com/bigkaa/licstore/clearing-module/internal/api/errors"
	"github.com/bigkaa/licstore/clearing-module/internal/api/middleware"
	"github.com/bigkaa/licstore/clearing-module/internal/domain/perm"
	"github.com/bigkaa/licstore/clearing-module/internal/service"
)

// AJAX-действия панели переиспользования.
const (
	ajaxActionGetUploads         = "getUploads"
	ajaxActionGetOsselotVersions = "getOsselotVersions"
)

// ReuseAjax — GET /api/v1/reuse/ajax.
// AJAX-вход панели переиспользования. Действие выбирается параметром do:
//   - getUploads — список загрузок папки: параметр reuseFolder в виде
//     "folderId,groupId"; без параметра берутся корневая папка и группа
//     по умолчанию текущего пользователя
//   - getOsselotVersions — версии пакета из реестра Osselot: параметр
//     package (или packageName)
//
// Нераспознанное действие — 405.
func (h *APIHandler) ReuseAjax(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	switch r.URL.Query().Get("do") {
	case ajaxActionGetUploads:
		h.ajaxGetUploads(w, r)
	case ajaxActionGetOsselotVersions:
		h.ajaxGetOsselotVersions(w, r)
	default:
		apierrors.MethodNotAllowed(w, "Неизвестное действие")
	}
}

// ajaxGetUploads возвращает загрузки папки как отображение
// "uploadId,groupId" → подпись.
func (h *APIHandler) ajaxGetUploads(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	folderID, groupID, ok := parseFolderPair(r.URL.Query().Get(service.ReuseFolderParameterName))
	if !ok {
		// Пара не задана — берём корневую папку и группу пользователя
		user, err := h.users.GetUser(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				writeJSON(w, http.StatusOK, map[string]string{})
				return
			}
			h.logger.Error("Ошибка получения пользователя", "user_id", claims.Subject, "error", err)
			apierrors.InternalError(w, "Ошибка получения пользователя")
			return
		}
		folderID, groupID = user.RootFolderID, user.DefaultGroupID
	}

	uploads, err := h.reuse.ListUploads(r.Context(), folderID, groupID)
	if err != nil {
		h.logger.Error("Ошибка получения загрузок", "folder_id", folderID, "error", err)
		apierrors.InternalError(w, "Ошибка получения загрузок")
		return
	}

	writeJSON(w, http.StatusOK, uploads)
}

// ajaxGetOsselotVersions возвращает версии пакета из реестра Osselot.
// При недоступности реестра или пустом имени пакета — пустой список.
func (h *APIHandler) ajaxGetOsselotVersions(w http.ResponseWriter, r *http.Request) {
	pkg := r.URL.Query().Get("package")
	if pkg == "" {
		pkg = r.URL.Query().Get("packageName")
	}

	versions := h.reuse.ListPackageVersions(r.Context(), pkg)
	if versions == nil {
		versions = []string{}
	}

	writeJSON(w, http.StatusOK, versions)
}

// ReusePanel — GET /api/v1/reuse/panel.
// Возвращает view-model панели переиспользования для текущего
// пользователя. Если панель показать нечем (нет учётной записи или
// доступных папок) — 204 без тела.
func (h *APIHandler) ReusePanel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	user, err := h.users.GetUser(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.logger.Error("Ошибка получения пользователя", "user_id", claims.Subject, "error", err)
		apierrors.InternalError(w, "Ошибка получения пользователя")
		return
	}

	panel, err := h.reuse.PanelViewModel(r.Context(), user)
	if err != nil {
		h.logger.Error("Ошибка сборки панели переиспользования", "user_id", user.ID, "error", err)
		apierrors.InternalError(w, "Ошибка сборки панели переиспользования")
		return
	}
	if panel == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, panel)
}

// GetOsselotDescriptor — GET /api/v1/osselot/descriptor.
// Возвращает XML-дескриптор версии пакета из реестра Osselot.
// Параметры: package (или packageName) и version.
func (h *APIHandler) GetOsselotDescriptor(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	pkg := r.URL.Query().Get("package")
	if pkg == "" {
		pkg = r.URL.Query().Get("packageName")
	}
	data, err := h.reuse.GetDescriptor(r.Context(), pkg, r.URL.Query().Get("version"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, "Требуются параметры package и version")
		case errors.Is(err, service.ErrOsselotUnavailable):
			apierrors.OsselotUnavailable(w, "Реестр Osselot недоступен или дескриптор не получен")
		default:
			h.logger.Error("Ошибка получения дескриптора Osselot", "error", err)
			apierrors.InternalError(w, "Ошибка получения дескриптора")
		}
		return
	}

	w.Header().Set("Content-Type", "application/rdf+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// ClearOsselotCache — DELETE /api/v1/osselot/cache.
// Удаляет кэшированные дескрипторы Osselot. Идемпотентна.
// Доступ: admin.
func (h *APIHandler) ClearOsselotCache(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || !claims.Permission.AtLeast(perm.PermAdmin) {
		apierrors.Forbidden(w, "Недостаточно прав: требуется уровень admin")
		return
	}

	removed := 0
	if h.cache != nil {
		n, err := h.cache.ClearCache()
		if err != nil {
			h.logger.Error("Ошибка очистки кэша Osselot", "error", err)
			apierrors.InternalError(w, "Ошибка очистки кэша Osselot")
			return
		}
		removed = n
	}

	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// parseFolderPair разбирает составной параметр "folderId,groupId".
func parseFolderPair(raw string) (folderID, groupID int64, ok bool) {
	parts := strings.SplitN(raw, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	folderID, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	groupID, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return folderID, groupID, true
}
