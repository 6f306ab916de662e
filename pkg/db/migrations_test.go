package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMigrations_ValidDir(t *testing.T) {
	// Create a temp directory with SQL files
	dir := t.TempDir()

	files := map[string]string{
		"0001_create_table.sql": "CREATE TABLE test (id SERIAL PRIMARY KEY);",
		"0002_add_column.sql":  "ALTER TABLE test ADD COLUMN name TEXT;",
		"0003_add_index.sql":   "CREATE INDEX idx_name ON test(name);",
	}

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("db:migrations_test - failed to write test file %s: %v", name, err)
		}
	}

	result, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("db:migrations_test - unexpected error: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("db:migrations_test - expected 3 migrations, got %d", len(result))
	}

	// Verify order (should be sorted by filename)
	if result[0].SQL != "CREATE TABLE test (id SERIAL PRIMARY KEY);" || result[0].Name != "0001_create_table.sql" {
		t.Errorf("db:migrations_test - first migration content mismatch")
	}
	if result[1].SQL != "ALTER TABLE test ADD COLUMN name TEXT;" {
		t.Errorf("db:migrations_test - second migration content mismatch")
	}
	if result[2].SQL != "CREATE INDEX idx_name ON test(name);" {
		t.Errorf("db:migrations_test - third migration content mismatch")
	}
}

func TestLoadMigrations_SkipsNonSQLFiles(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"0001_create.sql":   "CREATE TABLE t1;",
		"README.md":         "# Migrations",
		"notes.txt":         "some notes",
		"0002_alter.sql":    "ALTER TABLE t1;",
		"config.json":       "{}",
	}

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("db:migrations_test - failed to write test file: %v", err)
		}
	}

	result, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("db:migrations_test - unexpected error: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("db:migrations_test - expected 2 SQL files, got %d", len(result))
	}
}

func TestLoadMigrations_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()

	// Create a subdirectory
	subDir := filepath.Join(dir, "subdir.sql") // tricky name ending with .sql
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatalf("db:migrations_test - failed to create subdir: %v", err)
	}

	// Create actual SQL file
	sqlFile := filepath.Join(dir, "0001_create.sql")
	if err := os.WriteFile(sqlFile, []byte("CREATE TABLE x;"), 0644); err != nil {
		t.Fatalf("db:migrations_test - failed to write file: %v", err)
	}

	result, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("db:migrations_test - unexpected error: %v", err)
	}

	if len(result) != 1 {
		t.Errorf("db:migrations_test - expected 1 migration (skipping dir), got %d", len(result))
	}
}

func TestLoadMigrations_EmptyDir(t *testing.T) {
	dir := t.TempDir()

	result, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("db:migrations_test - unexpected error: %v", err)
	}

	if result != nil && len(result) != 0 {
		t.Errorf("db:migrations_test - expected empty result, got %d items", len(result))
	}
}

func TestLoadMigrations_NonExistentDir(t *testing.T) {
	_, err := LoadMigrations(filepath.Join(t.TempDir(), "nonexistent"))
	if err == nil {
		t.Error("db:migrations_test - expected error for non-existent directory")
	}
}

func TestLoadMigrations_SortOrder(t *testing.T) {
	dir := t.TempDir()

	// Write files in reverse order to ensure sorting works
	files := []struct {
		name    string
		content string
	}{
		{"0003_third.sql", "THIRD"},
		{"0001_first.sql", "FIRST"},
		{"0002_second.sql", "SECOND"},
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			t.Fatalf("db:migrations_test - failed to write file: %v", err)
		}
	}

	result, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("db:migrations_test - unexpected error: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("db:migrations_test - expected 3, got %d", len(result))
	}
	if result[0].SQL != "FIRST" {
		t.Errorf("db:migrations_test - expected FIRST at index 0, got %s", result[0].SQL)
	}
	if result[1].SQL != "SECOND" {
		t.Errorf("db:migrations_test - expected SECOND at index 1, got %s", result[1].SQL)
	}
	if result[2].SQL != "THIRD" {
		t.Errorf("db:migrations_test - expected THIRD at index 2, got %s", result[2].SQL)
	}
}

func TestLoadMigrations_RepositoryMigrations(t *testing.T) {
	result, err := LoadMigrations(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("db:migrations_test - failed to load repository migrations: %v", err)
	}
	if len(result) == 0 {
		t.Fatal("db:migrations_test - expected at least one repository migration")
	}
	if result[0].Name != "001_subscription_journal.sql" {
		t.Errorf("db:migrations_test - first migration = %s, want 001_subscription_journal.sql", result[0].Name)
	}
	if !strings.Contains(result[0].SQL, journalTable) {
		t.Errorf("db:migrations_test - first migration does not create %s", journalTable)
	}
}
