package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/licstore/clearing-module/internal/domain/model"
)

// AgentRepository — интерфейс доступа к таблице agents.
type AgentRepository interface {
	// ListEnabled возвращает агентов, доступных для выбора.
	ListEnabled(ctx context.Context) ([]*model.Agent, error)
}

type agentRepo struct {
	db DBTX
}

// NewAgentRepository создаёт репозиторий агентов анализа.
func NewAgentRepository(db DBTX) AgentRepository {
	return &agentRepo{db: db}
}

func (r *agentRepo) ListEnabled(ctx context.Context) ([]*model.Agent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, enabled
		FROM agents
		WHERE enabled
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка агентов: %w", err)
	}
	defer rows.Close()

	var result []*model.Agent
	for rows.Next() {
		a := &model.Agent{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Enabled); err != nil {
			return nil, fmt.Errorf("ошибка сканирования агента: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
