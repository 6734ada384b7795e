// agents.go — каталог агентов анализа. Отдаёт UI список агентов,
// доступных для выбора в форме редактирования пользователя.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/licstore/clearing-module/internal/domain/model"
	"github.com/bigkaa/licstore/clearing-module/internal/repository"
)

// AgentCatalogService — каталог агентов анализа.
type AgentCatalogService struct {
	agentRepo repository.AgentRepository
	logger    *slog.Logger
}

// NewAgentCatalogService создаёт каталог агентов.
func NewAgentCatalogService(agentRepo repository.AgentRepository, logger *slog.Logger) *AgentCatalogService {
	return &AgentCatalogService{
		agentRepo: agentRepo,
		logger:    logger.With(slog.String("component", "agent_catalog_service")),
	}
}

// ListAgents возвращает агентов, доступных для выбора.
func (s *AgentCatalogService) ListAgents(ctx context.Context) ([]*model.Agent, error) {
	agents, err := s.agentRepo.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("получение списка агентов: %w", err)
	}
	return agents, nil
}
