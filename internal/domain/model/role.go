package model

// Role — роль пользователя в системе.
type Role string

const (
	// RoleAdmin — администратор: видит все файлы, управляет индексацией и настройками.
	RoleAdmin Role = "ADMIN"
	// RoleUser — обычный пользователь: видит только файлы со своим владельцем.
	RoleUser Role = "USER"
)

// Valid проверяет, что роль принадлежит множеству известных ролей.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// CanAccess — единая проверка доступа к файлу для list/stream/download/delete.
// Администратор имеет доступ ко всем файлам. Обычный пользователь —
// только к файлам, чей вычисленный владелец совпадает с его username;
// неназначенные файлы (owner == "") для него невидимы.
func CanAccess(role Role, username, owner string) bool {
	if role == RoleAdmin {
		return true
	}
	return owner != "" && owner == username
}
