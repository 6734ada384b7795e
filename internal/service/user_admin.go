// Пакет service — бизнес-логика Clearing Module.
// user_admin.go — сервис администрирования пользователей.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/bigkaa/licstore/clearing-module/internal/domain/model"
	"github.com/bigkaa/licstore/clearing-module/internal/domain/perm"
	"github.com/bigkaa/licstore/clearing-module/internal/repository"
)

// UserAdminService — сервис администрирования пользователей.
// Изменение пользователей доступно только администраторам.
type UserAdminService struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
}

// NewUserAdminService создаёт сервис администрирования пользователей.
func NewUserAdminService(userRepo repository.UserRepository, logger *slog.Logger) *UserAdminService {
	return &UserAdminService{
		userRepo: userRepo,
		logger:   logger.With(slog.String("component", "user_admin_service")),
	}
}

// GetUser возвращает пользователя по идентификатору.
func (s *UserAdminService) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

// ListUsers возвращает пользователей с пагинацией и общее количество.
func (s *UserAdminService) ListUsers(ctx context.Context, limit, offset int) ([]*model.User, int, error) {
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение списка пользователей: %w", err)
	}
	total, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("подсчёт пользователей: %w", err)
	}
	return users, total, nil
}

// UpdateUser применяет частичное обновление к пользователю.
//
// Операция доступна только администраторам (actor). Поля, отсутствующие
// в обновлении, сохраняют текущие значения записи. Имя уровня доступа
// преобразуется в числовой уровень; нераспознанное имя означает
// отсутствие доступа. Присутствующий выбор агентов целиком заменяет
// текущий набор: не упомянутые в выборе известные агенты выключаются.
// Пароль хэшируется только когда задан новый.
func (s *UserAdminService) UpdateUser(ctx context.Context, actor perm.Level, id string, upd *model.UserUpdate) (*model.User, error) {
	if !actor.AtLeast(perm.PermAdmin) {
		return nil, ErrForbidden
	}

	existing, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	merged, err := mergeUpdate(existing, upd)
	if err != nil {
		return nil, err
	}

	if err := validateUser(merged); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, merged); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("сохранение пользователя: %w", err)
	}

	s.logger.Info("Пользователь обновлён",
		slog.String("user_id", merged.ID),
		slog.String("username", merged.Username),
		slog.String("permission", merged.Permission.Name()),
	)
	return merged, nil
}

// DeleteUser удаляет пользователя. Операция доступна только администраторам.
func (s *UserAdminService) DeleteUser(ctx context.Context, actor perm.Level, id string) error {
	if !actor.AtLeast(perm.PermAdmin) {
		return ErrForbidden
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление пользователя: %w", err)
	}
	return nil
}

// mergeUpdate накладывает частичное обновление на существующую запись.
// Возвращает новую запись; existing не изменяется.
func mergeUpdate(existing *model.User, upd *model.UserUpdate) (*model.User, error) {
	merged := *existing

	if upd.Username != nil {
		merged.Username = *upd.Username
	}
	if upd.Description != nil {
		merged.Description = *upd.Description
	}
	if upd.Email != nil {
		merged.Email = *upd.Email
	}
	if upd.EmailNotify != nil {
		merged.EmailNotify = *upd.EmailNotify
	}
	if upd.Permission != nil {
		merged.Permission = perm.Parse(*upd.Permission)
	}
	if upd.Agents != nil {
		merged.Agents = upd.Agents.Canonical()
	}
	if upd.RootFolderID != nil {
		merged.RootFolderID = *upd.RootFolderID
	}
	if upd.DefaultFolderID != nil {
		merged.DefaultFolderID = *upd.DefaultFolderID
	}
	if upd.DefaultGroupID != nil {
		merged.DefaultGroupID = *upd.DefaultGroupID
	}
	if upd.DefaultBucketPool != nil {
		merged.DefaultBucketPool = *upd.DefaultBucketPool
	}
	if upd.Status != nil {
		merged.Status = *upd.Status
	}
	if upd.Visible != nil {
		merged.Visible = *upd.Visible
	}

	// Хэшируем только новый непустой пароль; пустое поле оставляет старый
	if upd.Password != nil && *upd.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*upd.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("хэширование пароля: %w", err)
		}
		merged.PasswordHash = string(hash)
	}

	return &merged, nil
}

// validateUser проверяет собранную запись. Все найденные проблемы
// собираются в одно сообщение.
func validateUser(u *model.User) error {
	var problems []string

	if strings.TrimSpace(u.Username) == "" {
		problems = append(problems, "имя пользователя не может быть пустым")
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		problems = append(problems, fmt.Sprintf("некорректный адрес почты %q", u.Email))
	}
	if !u.Permission.Valid() {
		problems = append(problems, fmt.Sprintf("некорректный уровень доступа %d", u.Permission))
	}
	if u.RootFolderID <= 0 {
		problems = append(problems, "не задана корневая папка")
	}
	// Пустой статус допустим для старых записей
	if u.Status != "" && !model.ValidUserStatus(u.Status) {
		problems = append(problems, fmt.Sprintf("неизвестный статус %q", u.Status))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
