// errors.go — ошибки сервисного слоя.
// Handler-слой отображает их в HTTP-статусы через errors.Is.
package service

import "errors"

var (
	// ErrNotConfigured — директория-источник не задана в настройках.
	ErrNotConfigured = errors.New("директория-источник не настроена")
	// ErrMaintenanceBusy — индексация или очистка уже выполняется.
	ErrMaintenanceBusy = errors.New("обслуживание хранилища уже выполняется")
	// ErrNotFound — файл не найден в управляемом хранилище.
	ErrNotFound = errors.New("файл не найден")
	// ErrAccessDenied — у пользователя нет прав на файл.
	ErrAccessDenied = errors.New("доступ к файлу запрещён")
)
