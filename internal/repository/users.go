package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/licstore/clearing-module/internal/domain/model"
)

// UserRepository — интерфейс CRUD для таблицы users.
type UserRepository interface {
	// Create создаёт пользователя.
	Create(ctx context.Context, u *model.User) error
	// GetByID возвращает пользователя по UUID.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByUsername возвращает пользователя по имени.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// Update сохраняет изменённую запись пользователя целиком.
	Update(ctx context.Context, u *model.User) error
	// Delete удаляет пользователя по UUID.
	Delete(ctx context.Context, id string) error
	// List возвращает пользователей (с пагинацией).
	List(ctx context.Context, limit, offset int) ([]*model.User, error)
	// Count возвращает количество пользователей.
	Count(ctx context.Context) (int, error)
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, username, description, email, email_notify, permission,
	agents, root_folder_id, default_folder_id, default_group_id, default_bucket_pool,
	status, visible, password_hash, created_at, updated_at`

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	// ID задаётся вызывающим (sub из IdP) либо генерируется здесь
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	if u.Status == "" {
		u.Status = model.UserStatusActive
	}

	query := `
		INSERT INTO users (id, username, description, email, email_notify, permission,
			agents, root_folder_id, default_folder_id, default_group_id,
			default_bucket_pool, status, visible, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		u.ID, u.Username, u.Description, u.Email, u.EmailNotify, u.Permission,
		u.Agents, u.RootFolderID, u.DefaultFolderID, u.DefaultGroupID,
		u.DefaultBucketPool, u.Status, u.Visible, u.PasswordHash,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, id))
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE username = $1`, userColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, username))
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	query := `
		UPDATE users SET
			username = $2,
			description = $3,
			email = $4,
			email_notify = $5,
			permission = $6,
			agents = $7,
			root_folder_id = $8,
			default_folder_id = $9,
			default_group_id = $10,
			default_bucket_pool = $11,
			status = $12,
			visible = $13,
			password_hash = $14,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		u.ID, u.Username, u.Description, u.Email, u.EmailNotify, u.Permission,
		u.Agents, u.RootFolderID, u.DefaultFolderID, u.DefaultGroupID,
		u.DefaultBucketPool, u.Status, u.Visible, u.PasswordHash,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка обновления пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления пользователя: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM users
		ORDER BY username
		LIMIT $1 OFFSET $2`, userColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(
			&u.ID, &u.Username, &u.Description, &u.Email, &u.EmailNotify, &u.Permission,
			&u.Agents, &u.RootFolderID, &u.DefaultFolderID, &u.DefaultGroupID,
			&u.DefaultBucketPool, &u.Status, &u.Visible, &u.PasswordHash,
			&u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта пользователей: %w", err)
	}
	return count, nil
}

func (r *userRepo) scanOne(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Username, &u.Description, &u.Email, &u.EmailNotify, &u.Permission,
		&u.Agents, &u.RootFolderID, &u.DefaultFolderID, &u.DefaultGroupID,
		&u.DefaultBucketPool, &u.Status, &u.Visible, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}
