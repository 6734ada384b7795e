package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/licstore/clearing-module/internal/domain/model"
	"github.com/bigkaa/licstore/clearing-module/internal/domain/perm"
)

// withURLParam добавляет chi route-параметр в контекст запроса.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TestGetUser_View — представление пользователя в API без хэша пароля.
func TestGetUser_View(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*model.User{
		"u-1": {
			ID:           "u-1",
			Username:     "alice",
			Email:        "alice@test.com",
			Permission:   perm.PermWrite,
			Agents:       "nomos,ojo",
			RootFolderID: 1,
			PasswordHash: "$2a$10$secret",
		},
	}}
	h := newTestHandler(users, &fakeUploadRepo{}, &fakeFolderRepo{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u-1", nil)
	req = withClaims(req, "admin-1", perm.PermClearingAdmin)
	req = withURLParam(req, "id", "u-1")
	rec := httptest.NewRecorder()

	h.GetUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d, тело: %s", rec.Code, rec.Body.String())
	}

	var view map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("некорректный JSON: %v", err)
	}
	if view["user_name"] != "alice" {
		t.Errorf("user_name = %v, ожидается alice", view["user_name"])
	}
	if view["user_perm"] != "read_write" {
		t.Errorf("user_perm = %v, ожидается read_write", view["user_perm"])
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Error("хэш пароля не должен попадать в ответ")
	}
}

// TestGetUser_NotFound — отсутствующий пользователь даёт 404.
func TestGetUser_NotFound(t *testing.T) {
	h := newTestHandler(&fakeUserRepo{}, &fakeUploadRepo{}, &fakeFolderRepo{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/ghost", nil)
	req = withClaims(req, "admin-1", perm.PermAdmin)
	req = withURLParam(req, "id", "ghost")
	rec := httptest.NewRecorder()

	h.GetUser(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("ожидался статус 404, получен %d", rec.Code)
	}
}

// TestGetUser_Forbidden — read_write недостаточно для просмотра.
func TestGetUser_Forbidden(t *testing.T) {
	h := newTestHandler(&fakeUserRepo{}, &fakeUploadRepo{}, &fakeFolderRepo{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u-1", nil)
	req = withClaims(req, "user-1", perm.PermWrite)
	req = withURLParam(req, "id", "u-1")
	rec := httptest.NewRecorder()

	h.GetUser(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("ожидался статус 403, получен %d", rec.Code)
	}
}

// TestUpdateUser_SparseUpdate — отсутствующие поля сохраняют текущие значения.
func TestUpdateUser_SparseUpdate(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*model.User{
		"u-1": {
			ID:           "u-1",
			Username:     "alice",
			Email:        "alice@test.com",
			Permission:   perm.PermRead,
			RootFolderID: 1,
		},
	}}
	h := newTestHandler(users, &fakeUploadRepo{}, &fakeFolderRepo{}, nil, nil)

	body := strings.NewReader(`{"user_perm":"clearing_admin"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/u-1", body)
	req = withClaims(req, "admin-1", perm.PermAdmin)
	req = withURLParam(req, "id", "u-1")
	rec := httptest.NewRecorder()

	h.UpdateUser(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d, тело: %s", rec.Code, rec.Body.String())
	}

	var view map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("некорректный JSON: %v", err)
	}
	if view["user_perm"] != "clearing_admin" {
		t.Errorf("user_perm = %v, ожидается clearing_admin", view["user_perm"])
	}
	// Не упомянутые поля не изменились
	if view["user_name"] != "alice" {
		t.Errorf("user_name = %v, ожидается alice", view["user_name"])
	}
	if view["user_email"] != "alice@test.com" {
		t.Errorf("user_email = %v, ожидается alice@test.com", view["user_email"])
	}
}

// TestUpdateUser_Forbidden — не администратор получает 403, запись не меняется.
func TestUpdateUser_Forbidden(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*model.User{
		"u-1": {ID: "u-1", Username: "alice", RootFolderID: 1},
	}}
	h := newTestHandler(users, &fakeUploadRepo{}, &fakeFolderRepo{}, nil, nil)

	body := strings.NewReader(`{"user_name":"mallory"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/u-1", body)
	req = withClaims(req, "user-2", perm.PermClearingAdmin)
	req = withURLParam(req, "id", "u-1")
	rec := httptest.NewRecorder()

	h.UpdateUser(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("ожидался статус 403, получен %d", rec.Code)
	}
	if users.users["u-1"].Username != "alice" {
		t.Errorf("имя пользователя изменилось на %q", users.users["u-1"].Username)
	}
}

// TestUpdateUser_ValidationError — непроходящее валидацию обновление даёт 400.
func TestUpdateUser_ValidationError(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*model.User{
		"u-1": {ID: "u-1", Username: "alice", RootFolderID: 1},
	}}
	h := newTestHandler(users, &fakeUploadRepo{}, &fakeFolderRepo{}, nil, nil)

	body := strings.NewReader(`{"user_name":"  ","user_email":"not-an-email"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/users/u-1", body)
	req = withClaims(req, "admin-1", perm.PermAdmin)
	req = withURLParam(req, "id", "u-1")
	rec := httptest.NewRecorder()

	h.UpdateUser(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("ожидался статус 400, получен %d", rec.Code)
	}
}

// TestDeleteUser — удаление пользователя администратором.
func TestDeleteUser(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*model.User{
		"u-1": {ID: "u-1", Username: "alice", RootFolderID: 1},
	}}
	h := newTestHandler(users, &fakeUploadRepo{}, &fakeFolderRepo{}, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/u-1", nil)
	req = withClaims(req, "admin-1", perm.PermAdmin)
	req = withURLParam(req, "id", "u-1")
	rec := httptest.NewRecorder()

	h.DeleteUser(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("ожидался статус 204, получен %d", rec.Code)
	}
	if len(users.users) != 0 {
		t.Errorf("пользователь не удалён")
	}
}

// TestListUsers_Pagination — параметры пагинации в ответе.
func TestListUsers_Pagination(t *testing.T) {
	users := &fakeUserRepo{users: map[string]*model.User{
		"u-1": {ID: "u-1", Username: "alice", RootFolderID: 1},
		"u-2": {ID: "u-2", Username: "bob", RootFolderID: 1},
	}}
	h := newTestHandler(users, &fakeUploadRepo{}, &fakeFolderRepo{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users?limit=10&offset=0", nil)
	req = withClaims(req, "admin-1", perm.PermClearingAdmin)
	rec := httptest.NewRecorder()

	h.ListUsers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался статус 200, получен %d", rec.Code)
	}

	var resp struct {
		Items   []map[string]any `json:"items"`
		Total   int              `json:"total"`
		Limit   int              `json:"limit"`
		HasMore bool             `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("некорректный JSON: %v", err)
	}
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Errorf("total=%d items=%d, ожидается 2/2", resp.Total, len(resp.Items))
	}
	if resp.Limit != 10 {
		t.Errorf("limit = %d, ожидается 10", resp.Limit)
	}
	if resp.HasMore {
		t.Error("ожидался has_more = false")
	}
}
