package shared

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migration is one numbered schema change, read from sql/NNNN_name_{up,down}.sql.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Migrator applies the embedded migrations and records them in schema_migrations.
type Migrator struct {
	db    *sql.DB
	fsys  fs.FS
	table string
}

func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{db: db, fsys: migrationFiles, table: "schema_migrations"}
}

// Migrations returns the pairs found in the migration filesystem ordered by version.
func (m *Migrator) Migrations() ([]Migration, error) {
	names, err := fs.Glob(m.fsys, "sql/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}

	byVersion := map[int]*Migration{}
	for _, p := range names {
		base := strings.TrimSuffix(path.Base(p), ".sql")
		prefix, rest, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		body, err := fs.ReadFile(m.fsys, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", p, err)
		}

		mig := byVersion[version]
		if mig == nil {
			mig = &Migration{Version: version}
			byVersion[version] = mig
		}

		switch {
		case strings.HasSuffix(rest, "_up"):
			mig.Name = strings.TrimSuffix(rest, "_up")
			mig.Up = string(body)
		case strings.HasSuffix(rest, "_down"):
			mig.Down = string(body)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if mig.Up == "" || mig.Down == "" {
			return nil, fmt.Errorf("migration %04d is missing its up or down file", mig.Version)
		}
		out = append(out, *mig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Up applies every migration newer than the recorded version.
func (m *Migrator) Up() error {
	migrations, err := m.Migrations()
	if err != nil {
		return err
	}
	if err := m.ensureTable(); err != nil {
		return err
	}

	current, err := m.Version()
	if err != nil {
		return err
	}

	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.exec(mig.Up, fmt.Sprintf("INSERT INTO %s (version, name) VALUES (?, ?)", m.table), mig.Version, mig.Name); err != nil {
			return fmt.Errorf("failed to apply migration %04d_%s: %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// Down reverts the most recently applied migration.
func (m *Migrator) Down() error {
	migrations, err := m.Migrations()
	if err != nil {
		return err
	}
	if err := m.ensureTable(); err != nil {
		return err
	}

	current, err := m.Version()
	if err != nil {
		return err
	}
	if current == 0 {
		return fmt.Errorf("no migrations to roll back")
	}

	for _, mig := range migrations {
		if mig.Version == current {
			if err := m.exec(mig.Down, fmt.Sprintf("DELETE FROM %s WHERE version = ?", m.table), mig.Version); err != nil {
				return fmt.Errorf("failed to roll back migration %04d_%s: %w", mig.Version, mig.Name, err)
			}
			return nil
		}
	}
	return fmt.Errorf("migration version %d not found", current)
}

// Reset rolls back every applied migration and reapplies them.
func (m *Migrator) Reset() error {
	for {
		v, err := m.Version()
		if err != nil {
			return err
		}
		if v == 0 {
			break
		}
		if err := m.Down(); err != nil {
			return err
		}
	}
	return m.Up()
}

// Version returns the highest applied migration, or 0.
func (m *Migrator) Version() (int, error) {
	if err := m.ensureTable(); err != nil {
		return 0, err
	}
	var v int
	err := m.db.QueryRow(fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", m.table)).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

func (m *Migrator) ensureTable() error {
	_, err := m.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`, m.table))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", m.table, err)
	}
	return nil
}

// exec runs script statement by statement followed by the bookkeeping query, all in one transaction.
func (m *Migrator) exec(script, record string, args ...any) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(script) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%w\nstatement: %s", err, stmt)
		}
	}
	if _, err := tx.Exec(record, args...); err != nil {
		return err
	}
	return tx.Commit()
}

// splitStatements drops line comments and splits on semicolons.
func splitStatements(script string) []string {
	var b strings.Builder
	for line := range strings.SplitSeq(script, "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	var out []string
	for stmt := range strings.SplitSeq(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
