// guard.go — взаимное исключение обслуживающих операций.
//
// Индексация и retention-очистка мутируют одну и ту же управляемую
// директорию и не должны выполняться одновременно. Guard разделяется
// обоими сервисами: TryBegin захватывает его без ожидания, End
// освобождает.
package service

import "sync"

// MaintenanceGuard — невозвратный (без ожидания) захват права
// на обслуживание хранилища.
type MaintenanceGuard struct {
	mu   sync.Mutex
	busy bool
	task string
}

// NewMaintenanceGuard создаёт guard.
func NewMaintenanceGuard() *MaintenanceGuard {
	return &MaintenanceGuard{}
}

// TryBegin пытается захватить guard для задачи task.
// Возвращает false, если обслуживание уже идёт.
func (g *MaintenanceGuard) TryBegin(task string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy {
		return false
	}
	g.busy = true
	g.task = task
	return true
}

// End освобождает guard. Вызывать строго после успешного TryBegin.
func (g *MaintenanceGuard) End() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.busy = false
	g.task = ""
}

// Current возвращает имя текущей задачи и флаг занятости.
func (g *MaintenanceGuard) Current() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.task, g.busy
}
