package model

import (
	"testing"
	"time"
)

func TestExtractOwner(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"обычное имя по соглашению", "alice_scan1.png", "alice"},
		{"несколько подчёркиваний", "bob_scan_2024_01.pdf", "bob"},
		{"без подчёркивания — не назначен", "unassigned.txt", ""},
		{"подчёркивание в конце", "carol_", "carol"},
		{"подчёркивание в начале", "_orphan.txt", ""},
		{"пустая строка", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractOwner(tt.filename); got != tt.want {
				t.Errorf("ExtractOwner(%q): хотели %q, получили %q", tt.filename, tt.want, got)
			}
		})
	}
}

func TestFileExt(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"report.PDF", "pdf"},
		{"archive.tar.gz", "gz"},
		{"noext", ""},
		{"dot.", ""},
	}

	for _, tt := range tests {
		if got := FileExt(tt.filename); got != tt.want {
			t.Errorf("FileExt(%q): хотели %q, получили %q", tt.filename, tt.want, got)
		}
	}
}

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		username string
		owner    string
		want     bool
	}{
		{"админ видит чужой файл", RoleAdmin, "admin", "alice", true},
		{"админ видит неназначенный файл", RoleAdmin, "admin", "", true},
		{"пользователь видит свой файл", RoleUser, "alice", "alice", true},
		{"пользователь не видит чужой файл", RoleUser, "alice", "bob", false},
		{"пользователь не видит неназначенный файл", RoleUser, "alice", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.role, tt.username, tt.owner); got != tt.want {
				t.Errorf("CanAccess(%s, %q, %q): хотели %v, получили %v",
					tt.role, tt.username, tt.owner, tt.want, got)
			}
		})
	}
}

func TestSettingsRetentionWindow(t *testing.T) {
	s := &Settings{RetentionDays: 7, RetentionMinutes: 30}
	want := 7*24*time.Hour + 30*time.Minute
	if got := s.RetentionWindow(); got != want {
		t.Errorf("RetentionWindow: хотели %s, получили %s", want, got)
	}

	zero := &Settings{}
	if got := zero.RetentionWindow(); got != 0 {
		t.Errorf("нулевое окно: хотели 0, получили %s", got)
	}
}

func TestSettingsTargetDir(t *testing.T) {
	tests := []struct {
		name         string
		sourceFolder string
		want         string
	}{
		{"unix путь", "/mnt/scans/incoming", "incoming"},
		{"unc путь", "\\\\127.12.23.23\\Folder A\\Folder B", "Folder B"},
		{"завершающий слэш", "/mnt/scans/incoming/", "incoming"},
		{"пустой источник", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Settings{SourceFolder: tt.sourceFolder}
			got := s.TargetDir("/var/lib/scanstore")
			want := "/var/lib/scanstore/" + tt.want
			if got != want {
				t.Errorf("TargetDir: хотели %q, получили %q", want, got)
			}
		})
	}
}
