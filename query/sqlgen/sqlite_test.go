package sqlgen

import (
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbkit-go/dbkit/query/statement"
)

func TestSQLiteDML(t *testing.T) {
	lite := &SQLite{}

	q := compile(t, lite, &statement.Select{
		Columns: []statement.Selectable{{Expr: statement.Column("id")}},
		From:    from("table"),
	})
	assert.Equal(t, `SELECT "id" FROM "table"`, q.SQL)

	q = compile(t, lite, &statement.Select{From: from("t"), Limit: i64(10), Offset: i64(30)})
	assert.Equal(t, `SELECT * FROM "t" LIMIT 10 OFFSET 30`, q.SQL)

	q = compile(t, lite, &statement.Select{From: from("t"), Offset: i64(30)})
	assert.Equal(t, `SELECT * FROM "t" LIMIT -1 OFFSET 30`, q.SQL)

	q = compile(t, lite, &statement.Insert{Ignore: true, Into: "t", Columns: []string{"a"}, Values: []statement.Value{lit(1)}})
	assert.Equal(t, `INSERT OR IGNORE INTO "t" ("a") VALUES (?)`, q.SQL)

	q = compile(t, lite, &statement.Update{
		Table: statement.TableRef{Table: "t"},
		Set:   []statement.Assignment{{Column: "f", Value: lit(5)}},
		Where: []statement.Predicate{eq("x", 1)},
	})
	assert.Equal(t, `UPDATE "t" SET "f"=? WHERE "x" = ?`, q.SQL)
	assert.Equal(t, []interface{}{5, 1}, q.Args)
}

func TestSQLiteRejectsOrderedMutations(t *testing.T) {
	lite := &SQLite{}
	_, err := lite.Compile(&statement.Delete{From: statement.TableRef{Table: "t"}, Limit: i64(1)})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = lite.Compile(&statement.Update{
		Table:   statement.TableRef{Table: "t"},
		Set:     []statement.Assignment{{Column: "a", Value: lit(1)}},
		OrderBy: []statement.Order{{Expr: statement.Column("id")}},
	})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSQLiteCreateTable(t *testing.T) {
	stmt := &statement.CreateTable{
		Table: "users",
		Columns: []*statement.ColumnDef{
			{Name: "id", Type: statement.TypeInteger, AutoIncrement: true},
			{Name: "email", Type: statement.TypeString, Unique: true},
			{Name: "bio", Type: statement.TypeText, Nullable: true},
			{Name: "note", Type: statement.TypeString, Default: lit(`it's \ok`)},
			{Name: "state", Type: statement.TypeEnum, Values: []string{"on", "off"}},
		},
		Constraints: []statement.Constraint{
			{Kind: statement.ForeignConstraint, Foreign: &statement.ForeignKey{
				Columns: []string{"team_id"}, References: []string{"id"}, On: "teams", OnDelete: statement.SetNull,
			}},
		},
		Engine: "InnoDB",
	}
	q := compile(t, &SQLite{}, stmt)
	assert.Equal(t, `CREATE TABLE "users" (`+
		`"id" INTEGER PRIMARY KEY AUTOINCREMENT, `+
		`"email" VARCHAR(255) NOT NULL UNIQUE, `+
		`"bio" TEXT, `+
		`"note" VARCHAR(255) NOT NULL DEFAULT 'it''s \ok', `+
		`"state" VARCHAR(255) CHECK ("state" IN ('on','off')) NOT NULL, `+
		`FOREIGN KEY ("team_id") REFERENCES "teams" ("id") ON DELETE SET NULL)`, q.SQL)

	_, err := (&SQLite{}).Compile(&statement.CreateTable{
		Table:       "t",
		Columns:     []*statement.ColumnDef{{Name: "a", Type: statement.TypeInteger}},
		Constraints: []statement.Constraint{{Kind: statement.IndexConstraint, Columns: []string{"a"}}},
	})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSQLitePrimaryKeyPlacement(t *testing.T) {
	lite := &SQLite{}
	single := &statement.CreateTable{
		Table: "users",
		Columns: []*statement.ColumnDef{
			{Name: "id", Type: statement.TypeInteger, AutoIncrement: true},
			{Name: "name", Type: statement.TypeText},
		},
		Constraints: []statement.Constraint{{Kind: statement.PrimaryConstraint, Columns: []string{"id"}}},
	}
	q := compile(t, lite, single)
	assert.Equal(t, `CREATE TABLE "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL)`, q.SQL)

	pivot := &statement.CreateTable{
		Table: "role_user",
		Columns: []*statement.ColumnDef{
			{Name: "role_id", Type: statement.TypeInteger, Primary: true},
			{Name: "user_id", Type: statement.TypeInteger},
		},
		Constraints: []statement.Constraint{{Kind: statement.PrimaryConstraint, Columns: []string{"role_id", "user_id"}}},
	}
	q = compile(t, lite, pivot)
	assert.Equal(t, `CREATE TABLE "role_user" ("role_id" INTEGER NOT NULL, "user_id" INTEGER NOT NULL, PRIMARY KEY ("role_id", "user_id"))`, q.SQL)

	composite := &statement.CreateTable{
		Table: "users",
		Columns: []*statement.ColumnDef{
			{Name: "id", Type: statement.TypeInteger, AutoIncrement: true},
			{Name: "tenant_id", Type: statement.TypeInteger},
		},
		Constraints: []statement.Constraint{{Kind: statement.PrimaryConstraint, Columns: []string{"id", "tenant_id"}}},
	}
	_, err := lite.Compile(composite)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.True(t, IsStructural(err))
}

func TestSQLiteAlterTable(t *testing.T) {
	stmt := &statement.AlterTable{
		Table: "users",
		Alterations: []statement.Alteration{
			{Kind: statement.AddColumn, Column: &statement.ColumnDef{Name: "age", Type: statement.TypeInteger, Nullable: true}},
			{Kind: statement.AddIndex, Columns: []string{"age"}},
			{Kind: statement.DropUnique, Name: "users_email_unique"},
			{Kind: statement.RenameTable, To: "people"},
			{Kind: statement.DropColumn, Name: "legacy"},
		},
	}
	q := compile(t, &SQLite{}, stmt)
	assert.Equal(t, `ALTER TABLE "users" ADD COLUMN "age" INTEGER; `+
		`CREATE INDEX "users_age_index" ON "users" ("age"); `+
		`DROP INDEX "users_email_unique"; `+
		`ALTER TABLE "users" RENAME TO "people"; `+
		`ALTER TABLE "people" DROP COLUMN "legacy"`, q.SQL)

	tests := []struct {
		name string
		alt  statement.Alteration
		ver  string
	}{
		{"modify column", statement.Alteration{Kind: statement.ModifyColumn, Column: &statement.ColumnDef{Name: "a", Type: statement.TypeText}}, ""},
		{"add foreign", statement.Alteration{Kind: statement.AddForeign, Foreign: &statement.ForeignKey{Columns: []string{"a"}, References: []string{"id"}, On: "b"}}, ""},
		{"not null without default", statement.Alteration{Kind: statement.AddColumn, Column: &statement.ColumnDef{Name: "a", Type: statement.TypeText}}, ""},
		{"drop column on old sqlite", statement.Alteration{Kind: statement.DropColumn, Name: "a"}, "3.31.1"},
		{"rename column on old sqlite", statement.Alteration{Kind: statement.RenameColumn, Name: "a", To: "b"}, "3.22.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lite := &SQLite{}
			if tt.ver != "" {
				lite.Version = version.Must(version.NewVersion(tt.ver))
			}
			_, err := lite.Compile(&statement.AlterTable{Table: "t", Alterations: []statement.Alteration{tt.alt}})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupported)
		})
	}

	lite := &SQLite{Version: version.Must(version.NewVersion("3.45.1"))}
	q = compile(t, lite, &statement.AlterTable{Table: "t", Alterations: []statement.Alteration{{Kind: statement.DropColumn, Name: "a"}}})
	assert.Equal(t, `ALTER TABLE "t" DROP COLUMN "a"`, q.SQL)
}

func TestSQLiteOtherDDL(t *testing.T) {
	lite := &SQLite{}
	view := &statement.Select{Columns: []statement.Selectable{{Expr: statement.Column("id")}}, From: from("users")}
	tests := []struct {
		stmt statement.Statement
		sql  string
	}{
		{&statement.DropTable{Tables: []string{"a", "b"}, IfExists: true}, `DROP TABLE IF EXISTS "a"; DROP TABLE IF EXISTS "b"`},
		{&statement.TruncateTable{Table: "a"}, `DELETE FROM "a"`},
		{
			&statement.CreateIndex{Name: "i", Table: "t", IfNotExists: true, Columns: []statement.IndexColumn{{Name: "a"}}},
			`CREATE INDEX IF NOT EXISTS "i" ON "t" ("a")`,
		},
		{&statement.DropIndex{Name: "i", Table: "t", IfExists: true}, `DROP INDEX IF EXISTS "i"`},
		{&statement.CreateView{Name: "v", OrReplace: true, Select: view}, `DROP VIEW IF EXISTS "v"; CREATE VIEW "v" AS SELECT "id" FROM "users"`},
		{&statement.DropView{Names: []string{"v", "w"}}, `DROP VIEW "v"; DROP VIEW "w"`},
	}
	for _, tt := range tests {
		q := compile(t, lite, tt.stmt)
		assert.Equal(t, tt.sql, q.SQL)
	}

	_, err := lite.Compile(&statement.CreateDatabase{Name: "app"})
	assert.ErrorIs(t, err, ErrUnsupported)
	_, err = lite.Compile(&statement.DropDatabase{Name: "app"})
	assert.ErrorIs(t, err, ErrUnsupported)
}
