// agents.go — обработчик /api/v1/agents.
// Каталог агентов анализа для формы редактирования пользователя.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/licstore/clearing-module/internal/api/errors"
	"github.com/bigkaa/licstore/clearing-module/internal/api/middleware"
	"github.com/bigkaa/licstore/clearing-module/internal/domain/model"
)

// agentView — представление агента анализа в ответах API.
type agentView struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ListAgents — GET /api/v1/agents.
// Возвращает агентов, доступных для выбора.
// Доступ: любой аутентифицированный пользователь.
func (h *APIHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
		return
	}

	agents, err := h.agents.ListAgents(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения списка агентов", "error", err)
		apierrors.InternalError(w, "Ошибка получения списка агентов")
		return
	}

	items := make([]agentView, len(agents))
	for i, a := range agents {
		items[i] = mapAgent(a)
	}

	writeJSON(w, http.StatusOK, items)
}

// mapAgent конвертирует доменную модель в представление API.
func mapAgent(a *model.Agent) agentView {
	return agentView{
		Name:        a.Name,
		Description: a.Description,
	}
}
