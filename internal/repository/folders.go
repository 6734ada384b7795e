package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/licstore/clearing-module/internal/domain/model"
)

// FolderRepository — интерфейс доступа к таблице folders.
type FolderRepository interface {
	// Create создаёт папку.
	Create(ctx context.Context, f *model.Folder) error
	// GetByID возвращает папку по идентификатору.
	GetByID(ctx context.Context, id int64) (*model.Folder, error)
	// ListAccessible возвращает папки, доступные из корневой папки
	// пользователя (сама корневая и все вложенные).
	ListAccessible(ctx context.Context, rootFolderID int64) ([]*model.Folder, error)
	// Delete удаляет папку.
	Delete(ctx context.Context, id int64) error
}

type folderRepo struct {
	db DBTX
}

// NewFolderRepository создаёт репозиторий папок.
func NewFolderRepository(db DBTX) FolderRepository {
	return &folderRepo{db: db}
}

const folderColumns = `id, parent_id, name, description, created_at`

func (r *folderRepo) Create(ctx context.Context, f *model.Folder) error {
	query := `
		INSERT INTO folders (parent_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query, f.ParentID, f.Name, f.Description).
		Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания папки: %w", err)
	}
	return nil
}

func (r *folderRepo) GetByID(ctx context.Context, id int64) (*model.Folder, error) {
	query := fmt.Sprintf(`SELECT %s FROM folders WHERE id = $1`, folderColumns)

	f := &model.Folder{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.ParentID, &f.Name, &f.Description, &f.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения папки: %w", err)
	}
	return f, nil
}

func (r *folderRepo) ListAccessible(ctx context.Context, rootFolderID int64) ([]*model.Folder, error) {
	// Рекурсивный обход дерева папок от корневой папки пользователя
	query := fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT %s FROM folders WHERE id = $1
			UNION ALL
			SELECT f.id, f.parent_id, f.name, f.description, f.created_at
			FROM folders f
			JOIN subtree s ON f.parent_id = s.id
		)
		SELECT * FROM subtree ORDER BY name`, folderColumns)

	rows, err := r.db.Query(ctx, query, rootFolderID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка папок: %w", err)
	}
	defer rows.Close()

	var result []*model.Folder
	for rows.Next() {
		f := &model.Folder{}
		if err := rows.Scan(&f.ID, &f.ParentID, &f.Name, &f.Description, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования папки: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *folderRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления папки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
