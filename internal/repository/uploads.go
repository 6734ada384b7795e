package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/licstore/clearing-module/internal/domain/model"
)

// UploadRepository — интерфейс доступа к таблице uploads.
type UploadRepository interface {
	// Create создаёт запись о загрузке.
	Create(ctx context.Context, u *model.Upload) error
	// GetByID возвращает загрузку по идентификатору.
	GetByID(ctx context.Context, id int64) (*model.Upload, error)
	// ListByFolder возвращает загрузки папки, доступные группе.
	ListByFolder(ctx context.Context, folderID, groupID int64) ([]*model.Upload, error)
	// LatestFilename возвращает имя файла последней загрузки группы
	// (для предзаполнения имени пакета в поиске).
	LatestFilename(ctx context.Context, groupID int64) (string, error)
	// Delete удаляет загрузку.
	Delete(ctx context.Context, id int64) error
}

type uploadRepo struct {
	db DBTX
}

// NewUploadRepository создаёт репозиторий загрузок.
func NewUploadRepository(db DBTX) UploadRepository {
	return &uploadRepo{db: db}
}

const uploadColumns = `id, folder_id, group_id, filename, status, uploaded_at`

func (r *uploadRepo) Create(ctx context.Context, u *model.Upload) error {
	query := `
		INSERT INTO uploads (folder_id, group_id, filename, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, uploaded_at`

	err := r.db.QueryRow(ctx, query, u.FolderID, u.GroupID, u.Filename, u.Status).
		Scan(&u.ID, &u.UploadedAt)
	if err != nil {
		return fmt.Errorf("ошибка создания загрузки: %w", err)
	}
	return nil
}

func (r *uploadRepo) GetByID(ctx context.Context, id int64) (*model.Upload, error) {
	query := fmt.Sprintf(`SELECT %s FROM uploads WHERE id = $1`, uploadColumns)

	u := &model.Upload{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID, &u.FolderID, &u.GroupID, &u.Filename, &u.Status, &u.UploadedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения загрузки: %w", err)
	}
	return u, nil
}

func (r *uploadRepo) ListByFolder(ctx context.Context, folderID, groupID int64) ([]*model.Upload, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM uploads
		WHERE folder_id = $1 AND group_id = $2
		ORDER BY uploaded_at DESC`, uploadColumns)

	rows, err := r.db.Query(ctx, query, folderID, groupID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка загрузок: %w", err)
	}
	defer rows.Close()

	var result []*model.Upload
	for rows.Next() {
		u := &model.Upload{}
		if err := rows.Scan(
			&u.ID, &u.FolderID, &u.GroupID, &u.Filename, &u.Status, &u.UploadedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования загрузки: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *uploadRepo) LatestFilename(ctx context.Context, groupID int64) (string, error) {
	var filename string
	err := r.db.QueryRow(ctx, `
		SELECT filename FROM uploads
		WHERE group_id = $1
		ORDER BY uploaded_at DESC
		LIMIT 1`, groupID).Scan(&filename)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("ошибка получения последней загрузки: %w", err)
	}
	return filename, nil
}

func (r *uploadRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления загрузки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
