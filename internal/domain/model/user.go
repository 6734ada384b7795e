// Пакет model — доменные модели Clearing Module.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/licstore/clearing-module/internal/domain/perm"
)

// KnownAgents — канонический упорядоченный список агентов анализа.
// Порядок фиксирует каноническую форму поля Agents пользователя.
var KnownAgents = []string{
	"nomos",
	"monk",
	"ojo",
	"copyright",
	"ecc",
	"keyword",
	"mimetype",
	"pkgagent",
	"bucket",
}

// Статусы учётной записи.
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
)

// ValidUserStatus сообщает, известен ли статус учётной записи.
func ValidUserStatus(status string) bool {
	return status == UserStatusActive || status == UserStatusInactive
}

// User — учётная запись пользователя Clearing Module.
// Хранится в таблице users.
type User struct {
	// ID — UUID записи
	ID string
	// Username — имя пользователя
	Username string
	// Description — описание учётной записи
	Description string
	// Email — адрес электронной почты
	Email string
	// EmailNotify — отправлять ли уведомления по почте
	EmailNotify bool
	// Permission — уровень доступа
	Permission perm.Level
	// Agents — включённые агенты анализа, через запятую ("nomos,monk")
	Agents string
	// RootFolderID — корневая папка пользователя
	RootFolderID int64
	// DefaultFolderID — папка по умолчанию для новых загрузок
	DefaultFolderID int64
	// DefaultGroupID — группа по умолчанию
	DefaultGroupID int64
	// DefaultBucketPool — пул bucket-агента по умолчанию (0 — не задан)
	DefaultBucketPool int64
	// Status — статус учётной записи (active или inactive)
	Status string
	// Visible — показывать ли пользователя в списках выбора
	Visible bool
	// PasswordHash — bcrypt-хэш пароля (пустой для пользователей IdP)
	PasswordHash string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}

// AgentList возвращает включённых агентов пользователя как срез имён.
func (u *User) AgentList() []string {
	if u.Agents == "" {
		return nil
	}
	parts := strings.Split(u.Agents, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// UserUpdate — частичное обновление пользователя. Поле nil означает
// "оставить текущее значение".
type UserUpdate struct {
	// Username — новое имя пользователя
	Username *string `json:"user_name,omitempty"`
	// Description — новое описание
	Description *string `json:"user_desc,omitempty"`
	// Email — новый адрес электронной почты
	Email *string `json:"user_email,omitempty"`
	// EmailNotify — уведомления по почте
	EmailNotify *bool `json:"email_notify,omitempty"`
	// Permission — символическое имя уровня доступа (read_only, read_write, ...)
	Permission *string `json:"user_perm,omitempty"`
	// Agents — выбор агентов анализа
	Agents *AgentSelection `json:"user_agents,omitempty"`
	// Password — новый пароль открытым текстом
	Password *string `json:"user_pass,omitempty"`
	// RootFolderID — новая корневая папка
	RootFolderID *int64 `json:"root_folder_id,omitempty"`
	// DefaultFolderID — новая папка по умолчанию
	DefaultFolderID *int64 `json:"default_folder_id,omitempty"`
	// DefaultGroupID — новая группа по умолчанию
	DefaultGroupID *int64 `json:"default_group_id,omitempty"`
	// DefaultBucketPool — новый пул bucket-агента
	DefaultBucketPool *int64 `json:"default_bucket_pool,omitempty"`
	// Status — новый статус учётной записи
	Status *string `json:"user_status,omitempty"`
	// Visible — показывать ли пользователя в списках выбора
	Visible *bool `json:"user_visible,omitempty"`
}

// AgentSelection — выбор агентов анализа из запроса. Принимает две
// формы: JSON-объект {"nomos":1,"ojo":true} и строку "nomos,ojo".
// Включёнными считаются агенты с истинным значением либо
// перечисленные в строке.
type AgentSelection struct {
	enabled map[string]bool
}

// NewAgentSelection создаёт выбор из списка включённых агентов.
func NewAgentSelection(names ...string) *AgentSelection {
	sel := &AgentSelection{enabled: make(map[string]bool, len(names))}
	for _, n := range names {
		sel.enabled[n] = true
	}
	return sel
}

// Enabled сообщает, включён ли агент с данным именем.
func (s *AgentSelection) Enabled(name string) bool {
	if s == nil {
		return false
	}
	return s.enabled[name]
}

// Canonical возвращает каноническую форму выбора: известные агенты,
// включённые в выборе, в порядке KnownAgents, через запятую.
// Неизвестные имена отбрасываются.
func (s *AgentSelection) Canonical() string {
	if s == nil {
		return ""
	}
	var parts []string
	for _, name := range KnownAgents {
		if s.enabled[name] {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ",")
}

// UnmarshalJSON разбирает обе формы выбора агентов.
func (s *AgentSelection) UnmarshalJSON(data []byte) error {
	s.enabled = make(map[string]bool)

	// Строковая форма: "nomos,monk"
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		for _, p := range strings.Split(str, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				s.enabled[p] = true
			}
		}
		return nil
	}

	// Объектная форма: {"nomos":1,"ojo":true,"monk":0}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("выбор агентов: ожидается строка или объект: %w", err)
	}
	for name, raw := range obj {
		on, err := truthy(raw)
		if err != nil {
			return fmt.Errorf("выбор агентов: агент %q: %w", name, err)
		}
		if on {
			s.enabled[name] = true
		}
	}
	return nil
}

// truthy трактует JSON-значение как булево: bool, число (не ноль)
// или строка с числом либо "true"/"false".
func truthy(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if v, err := strconv.ParseBool(str); err == nil {
			return v, nil
		}
		if v, err := strconv.ParseFloat(str, 64); err == nil {
			return v != 0, nil
		}
	}
	return false, fmt.Errorf("некорректное значение %s", string(raw))
}
