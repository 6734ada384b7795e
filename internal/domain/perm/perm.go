// Пакет perm — уровни доступа пользователей Clearing Module
// и преобразование символических имён и групп IdP в уровни.
package perm

// Level — числовой уровень доступа пользователя. Больше — шире права.
type Level int

// Уровни доступа. Числовые значения хранятся в БД и участвуют
// в сравнениях, поэтому фиксированы.
const (
	// PermNone — нет доступа.
	PermNone Level = 0
	// PermRead — только чтение.
	PermRead Level = 1
	// PermWrite — чтение и запись.
	PermWrite Level = 3
	// PermClearingAdmin — администратор клиринга.
	PermClearingAdmin Level = 5
	// PermAdmin — администратор системы.
	PermAdmin Level = 10
)

// Символические имена уровней, как они приходят из API и UI.
const (
	NameNone          = "none"
	NameRead          = "read_only"
	NameWrite         = "read_write"
	NameClearingAdmin = "clearing_admin"
	NameAdmin         = "admin"
)

// Parse преобразует символическое имя уровня в Level.
// Нераспознанное имя трактуется как отсутствие доступа.
func Parse(name string) Level {
	switch name {
	case NameRead:
		return PermRead
	case NameWrite:
		return PermWrite
	case NameClearingAdmin:
		return PermClearingAdmin
	case NameAdmin:
		return PermAdmin
	default:
		return PermNone
	}
}

// Name возвращает символическое имя уровня.
func (l Level) Name() string {
	switch l {
	case PermRead:
		return NameRead
	case PermWrite:
		return NameWrite
	case PermClearingAdmin:
		return NameClearingAdmin
	case PermAdmin:
		return NameAdmin
	default:
		return NameNone
	}
}

// Valid сообщает, является ли значение одним из известных уровней.
func (l Level) Valid() bool {
	switch l {
	case PermNone, PermRead, PermWrite, PermClearingAdmin, PermAdmin:
		return true
	}
	return false
}

// AtLeast сообщает, достаточен ли уровень l для требуемого уровня required.
func (l Level) AtLeast(required Level) bool {
	return l >= required
}

// GroupMapping — соответствие групп IdP уровням доступа.
type GroupMapping struct {
	AdminGroups         []string
	ClearingAdminGroups []string
	WriteGroups         []string
	ReadGroups          []string
}

// FromGroups вычисляет уровень доступа по списку групп пользователя из
// токена IdP. Возвращается максимальный из уровней, на которые дают
// право группы. Пользователь без подходящих групп получает PermNone.
func FromGroups(groups []string, mapping GroupMapping) Level {
	level := PermNone
	set := toSet(groups)

	for _, g := range mapping.AdminGroups {
		if set[g] {
			return PermAdmin
		}
	}
	for _, g := range mapping.ClearingAdminGroups {
		if set[g] && level < PermClearingAdmin {
			level = PermClearingAdmin
		}
	}
	for _, g := range mapping.WriteGroups {
		if set[g] && level < PermWrite {
			level = PermWrite
		}
	}
	for _, g := range mapping.ReadGroups {
		if set[g] && level < PermRead {
			level = PermRead
		}
	}
	return level
}

// toSet преобразует срез строк в множество.
func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
