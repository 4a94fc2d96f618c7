package migrate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/dbkit-go/dbkit/query/builder"
	"github.com/dbkit-go/dbkit/runtime/client"
)

// ErrPathNotFound is returned when a migrations or seeds directory is missing.
var ErrPathNotFound = errors.New("migrate: path not found")

// migrationFile matches 2024_01_31_134500_create_users.sql.
var migrationFile = regexp.MustCompile(`^\d{4}_\d{2}_\d{2}_\d{6}_[A-Za-z0-9_]+\.sql$`)

// FileTimeFormat is the timestamp prefix of migration file names.
const FileTimeFormat = "2006_01_02_150405"

// Dir is a Source reading SQL files. Migration files hold an "-- +up"
// section and an optional "-- +down" section; every .sql file in the seeds
// directory is a seed.
type Dir struct {
	fs         afero.Fs
	migrations string
	seeds      string
}

// NewDir creates a Source over the two directories. seeds may be empty.
func NewDir(fs afero.Fs, migrations, seeds string) *Dir {
	return &Dir{fs: fs, migrations: migrations, seeds: seeds}
}

// Check verifies that the configured directories exist.
func (d *Dir) Check() error {
	for _, p := range []string{d.migrations, d.seeds} {
		if p == "" {
			continue
		}
		ok, err := afero.DirExists(d.fs, p)
		if err != nil {
			return fmt.Errorf("migrate: stat %s: %w", p, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrPathNotFound, p)
		}
	}
	return nil
}

func (d *Dir) list(dir string, match func(string) bool) ([]string, error) {
	if dir == "" {
		return nil, nil
	}
	infos, err := afero.ReadDir(d.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, dir)
		}
		return nil, fmt.Errorf("migrate: read %s: %w", dir, err)
	}
	var names []string
	for _, fi := range infos {
		if !fi.IsDir() && match(fi.Name()) {
			names = append(names, fi.Name())
		}
	}
	// ReadDir sorts by name.
	return names, nil
}

// Migrations implements Source.
func (d *Dir) Migrations() ([]Unit[Migration], error) {
	names, err := d.list(d.migrations, migrationFile.MatchString)
	if err != nil {
		return nil, err
	}
	units := make([]Unit[Migration], 0, len(names))
	for _, name := range names {
		data, err := afero.ReadFile(d.fs, filepath.Join(d.migrations, name))
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s: %w", name, err)
		}
		m, err := ParseMigration(string(data))
		if err != nil {
			return nil, fmt.Errorf("migrate: %s: %w", name, err)
		}
		units = append(units, Unit[Migration]{Name: strings.TrimSuffix(name, ".sql"), Unit: m})
	}
	return units, nil
}

// Seeds implements Source.
func (d *Dir) Seeds() ([]Unit[Seed], error) {
	names, err := d.list(d.seeds, func(n string) bool { return strings.HasSuffix(n, ".sql") })
	if err != nil {
		return nil, err
	}
	units := make([]Unit[Seed], 0, len(names))
	for _, name := range names {
		data, err := afero.ReadFile(d.fs, filepath.Join(d.seeds, name))
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s: %w", name, err)
		}
		units = append(units, Unit[Seed]{
			Name: strings.TrimSuffix(name, ".sql"),
			Unit: SQLSeed(SplitStatements(string(data))),
		})
	}
	return units, nil
}

// SQLMigration is a migration made of SQL statements.
type SQLMigration struct {
	UpStatements   []string
	DownStatements []string
}

func (m *SQLMigration) Up(ctx context.Context, conn *client.Connection) error {
	return execAll(ctx, conn, m.UpStatements)
}

func (m *SQLMigration) Down(ctx context.Context, conn *client.Connection) error {
	return execAll(ctx, conn, m.DownStatements)
}

// SQLSeed is a seed made of SQL statements.
type SQLSeed []string

func (s SQLSeed) Sow(ctx context.Context, conn *client.Connection) error {
	return execAll(ctx, conn, s)
}

func execAll(ctx context.Context, conn *client.Connection, stmts []string) error {
	for _, s := range stmts {
		if _, err := conn.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// ParseMigration reads the "-- +up" and "-- +down" sections of a script.
func ParseMigration(script string) (*SQLMigration, error) {
	var up, down strings.Builder
	var section *strings.Builder
	sc := bufio.NewScanner(strings.NewReader(script))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch marker(line) {
		case "+up":
			section = &up
			continue
		case "+down":
			section = &down
			continue
		}
		if section != nil {
			section.WriteString(line)
			section.WriteByte('\n')
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if section == nil {
		return nil, errors.New("no -- +up section")
	}
	return &SQLMigration{
		UpStatements:   SplitStatements(up.String()),
		DownStatements: SplitStatements(down.String()),
	}, nil
}

func marker(line string) string {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "--") {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "--")))
}

var nameCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// FileName returns the migration file name for name created at t.
func FileName(name string, t time.Time) string {
	clean := strings.Trim(nameCleaner.ReplaceAllString(strings.ToLower(name), "_"), "_")
	return t.UTC().Format(FileTimeFormat) + "_" + clean + ".sql"
}

// Create writes a new migration file and returns its path. With a table
// name and a builder, the file starts with a CREATE TABLE for that table
// compiled for the builder's dialect.
func (d *Dir) Create(b *builder.Builder, name, table string, now time.Time) (string, error) {
	if d.migrations == "" {
		return "", fmt.Errorf("%w: no migrations directory configured", ErrPathNotFound)
	}
	up, down := "", ""
	if table != "" && b != nil {
		t := b.CreateTable(table)
		t.BigIncrements("id")
		t.Timestamps()
		sql, _, err := t.ToSQL()
		if err != nil {
			return "", err
		}
		drop, _, err := b.DropTable(table).IfExists().ToSQL()
		if err != nil {
			return "", err
		}
		up, down = sql+";\n", drop+";\n"
	}
	return d.write(d.migrations, FileName(name, now), "-- +up\n"+up+"\n-- +down\n"+down)
}

// CreateSeed writes an empty seed file and returns its path.
func (d *Dir) CreateSeed(name string) (string, error) {
	if d.seeds == "" {
		return "", fmt.Errorf("%w: no seeds directory configured", ErrPathNotFound)
	}
	clean := strings.Trim(nameCleaner.ReplaceAllString(strings.ToLower(name), "_"), "_")
	return d.write(d.seeds, clean+".sql", "-- seed "+clean+"\n")
}

func (d *Dir) write(dir, name, content string) (string, error) {
	if err := d.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("migrate: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if ok, _ := afero.Exists(d.fs, path); ok {
		return "", fmt.Errorf("migrate: %s already exists", path)
	}
	if err := afero.WriteFile(d.fs, path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("migrate: write %s: %w", path, err)
	}
	return path, nil
}
