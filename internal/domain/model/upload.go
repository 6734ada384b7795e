package model

import "time"

// Статусы клиринга загрузки.
const (
	UploadStatusOpen       = "open"
	UploadStatusInProgress = "in progress"
	UploadStatusClosed     = "closed"
	UploadStatusRejected   = "rejected"
)

// Folder — папка иерархии загрузок.
// Хранится в таблице folders.
type Folder struct {
	// ID — идентификатор папки
	ID int64
	// ParentID — родительская папка (nil для корня)
	ParentID *int64
	// Name — имя папки
	Name string
	// Description — описание папки
	Description string
	// CreatedAt — время создания
	CreatedAt time.Time
}

// Upload — загрузка (проанализированный артефакт) в папке.
// Хранится в таблице uploads.
type Upload struct {
	// ID — идентификатор загрузки
	ID int64
	// FolderID — папка, в которой лежит загрузка
	FolderID int64
	// GroupID — группа-владелец загрузки
	GroupID int64
	// Filename — имя загруженного файла
	Filename string
	// Status — статус клиринга (open, in progress, closed, rejected)
	Status string
	// UploadedAt — время загрузки
	UploadedAt time.Time
}

// Agent — агент анализа, зарегистрированный в системе.
// Хранится в таблице agents.
type Agent struct {
	// ID — идентификатор агента
	ID int64
	// Name — каноническое имя агента (nomos, monk, ...)
	Name string
	// Description — человекочитаемое описание
	Description string
	// Enabled — доступен ли агент для выбора
	Enabled bool
}
