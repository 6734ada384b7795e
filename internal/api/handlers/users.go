// users.go — обработчики /api/v1/users endpoints.
// Администрирование пользователей: список, получение, частичное
// обновление, удаление.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/licstore/clearing-module/internal/api/errors"
	"github.com/bigkaa/licstore/clearing-module/internal/api/middleware"
	"github.com/bigkaa/licstore/clearing-module/internal/domain/model"
	"github.com/bigkaa/licstore/clearing-module/internal/domain/perm"
	"github.com/bigkaa/licstore/clearing-module/internal/service"
)

// ListUsers — GET /api/v1/users.
// Возвращает список пользователей с пагинацией.
// Доступ: clearing_admin и выше.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || !claims.Permission.AtLeast(perm.PermClearingAdmin) {
		apierrors.Forbidden(w, "Недостаточно прав: требуется уровень clearing_admin")
		return
	}

	limit, offset := paginationDefaults(r)

	users, total, err := h.users.ListUsers(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Ошибка получения списка пользователей", "error", err)
		apierrors.InternalError(w, "Ошибка получения списка пользователей")
		return
	}

	items := make([]userView, len(users))
	for i, u := range users {
		items[i] = mapUser(u)
	}

	writeJSON(w, http.StatusOK, userListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	})
}

// GetUser — GET /api/v1/users/{id}.
// Возвращает пользователя по UUID.
// Доступ: clearing_admin и выше.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil || !claims.Permission.AtLeast(perm.PermClearingAdmin) {
		apierrors.Forbidden(w, "Недостаточно прав: требуется уровень clearing_admin")
		return
	}

	id := chi.URLParam(r, "id")

	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Пользователь не найден")
			return
		}
		h.logger.Error("Ошибка получения пользователя", "user_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения пользователя")
		return
	}

	writeJSON(w, http.StatusOK, mapUser(user))
}

// UpdateUser — PUT /api/v1/users/{id}.
// Применяет частичное обновление: отсутствующие поля сохраняют
// текущие значения записи.
// Доступ: admin.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	id := chi.URLParam(r, "id")

	var upd model.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	user, err := h.users.UpdateUser(r.Context(), claims.Permission, id, &upd)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			apierrors.Forbidden(w, "Недостаточно прав: требуется уровень admin")
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Пользователь не найден")
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		case errors.Is(err, service.ErrConflict):
			apierrors.Conflict(w, "Пользователь с таким именем уже существует")
		default:
			h.logger.Error("Ошибка обновления пользователя", "user_id", id, "error", err)
			apierrors.InternalError(w, "Ошибка обновления пользователя")
		}
		return
	}

	writeJSON(w, http.StatusOK, mapUser(user))
}

// DeleteUser — DELETE /api/v1/users/{id}.
// Удаляет пользователя.
// Доступ: admin.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.users.DeleteUser(r.Context(), claims.Permission, id); err != nil {
		switch {
		case errors.Is(err, service.ErrForbidden):
			apierrors.Forbidden(w, "Недостаточно прав: требуется уровень admin")
		case errors.Is(err, service.ErrNotFound):
			apierrors.NotFound(w, "Пользователь не найден")
		default:
			h.logger.Error("Ошибка удаления пользователя", "user_id", id, "error", err)
			apierrors.InternalError(w, "Ошибка удаления пользователя")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Маппинг domain → API ---

// userView — представление пользователя в ответах API.
// Хэш пароля наружу не отдаётся.
type userView struct {
	ID                string   `json:"id"`
	Username          string   `json:"user_name"`
	Description       string   `json:"user_desc,omitempty"`
	Email             string   `json:"user_email,omitempty"`
	EmailNotify       bool     `json:"email_notify"`
	Permission        string   `json:"user_perm"`
	Agents            []string `json:"user_agents"`
	RootFolderID      int64    `json:"root_folder_id"`
	DefaultFolderID   int64    `json:"default_folder_id"`
	DefaultGroupID    int64    `json:"default_group_id"`
	DefaultBucketPool int64    `json:"default_bucket_pool,omitempty"`
	Status            string   `json:"user_status,omitempty"`
	Visible           bool     `json:"user_visible"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

// userListResponse — ответ списка пользователей с пагинацией.
type userListResponse struct {
	Items   []userView `json:"items"`
	Total   int        `json:"total"`
	Limit   int        `json:"limit"`
	Offset  int        `json:"offset"`
	HasMore bool       `json:"has_more"`
}

// mapUser конвертирует доменную модель в представление API.
func mapUser(u *model.User) userView {
	agents := u.AgentList()
	if agents == nil {
		agents = []string{}
	}
	return userView{
		ID:                u.ID,
		Username:          u.Username,
		Description:       u.Description,
		Email:             u.Email,
		EmailNotify:       u.EmailNotify,
		Permission:        u.Permission.Name(),
		Agents:            agents,
		RootFolderID:      u.RootFolderID,
		DefaultFolderID:   u.DefaultFolderID,
		DefaultGroupID:    u.DefaultGroupID,
		DefaultBucketPool: u.DefaultBucketPool,
		Status:            u.Status,
		Visible:           u.Visible,
		CreatedAt:         u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
