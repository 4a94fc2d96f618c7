package sqlgen

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbkit-go/dbkit/query/statement"
)

func i64(n int64) *int64 { return &n }

func lit(v any) statement.Value { return statement.Literal{V: v} }

func eq(col string, v any) statement.Comparison {
	return statement.Comparison{Column: col, Operator: statement.OpEq, Value: lit(v)}
}

func from(table string) []statement.TableRef {
	return []statement.TableRef{{Table: table}}
}

func compile(t *testing.T, c Compiler, stmt statement.Statement) *Query {
	t.Helper()
	q, err := c.Compile(stmt)
	require.NoError(t, err)
	return q
}

func TestMySQLSelect(t *testing.T) {
	my := &MySQL{}
	tests := []struct {
		name string
		stmt *statement.Select
		sql  string
		args []interface{}
	}{
		{
			name: "single column",
			stmt: &statement.Select{
				Columns: []statement.Selectable{{Expr: statement.Column("id")}},
				From:    from("table"),
			},
			sql: "SELECT `id` FROM `table`",
		},
		{
			name: "star and distinct",
			stmt: &statement.Select{Distinct: true, From: from("users")},
			sql:  "SELECT DISTINCT * FROM `users`",
		},
		{
			name: "aliases and dotted names",
			stmt: &statement.Select{
				Columns: []statement.Selectable{
					{Expr: statement.Column("u.id"), Alias: "uid"},
					{Expr: statement.Column("u.*")},
					{Expr: statement.Raw("COUNT(*)"), Alias: "total"},
				},
				From: []statement.TableRef{{Table: "users", Alias: "u"}},
			},
			sql: "SELECT `u`.`id` AS `uid`, `u`.*, COUNT(*) AS `total` FROM `users` AS `u`",
		},
		{
			name: "where group order limit",
			stmt: &statement.Select{
				From: from("users"),
				Where: []statement.Predicate{
					statement.Group{Predicates: []statement.Predicate{
						eq("a", 1),
						statement.Comparison{Boolean: statement.Or, Column: "b", Operator: statement.OpEq, Value: lit(2)},
					}},
					statement.Comparison{Boolean: statement.And, Column: "c", Operator: statement.OpGt, Value: lit(3)},
				},
				OrderBy: []statement.Order{{Expr: statement.Column("id"), Direction: statement.Desc}},
				Limit:   i64(10),
				Offset:  i64(20),
			},
			sql:  "SELECT * FROM `users` WHERE (`a` = ? OR `b` = ?) AND `c` > ? ORDER BY `id` DESC LIMIT 20, 10",
			args: []interface{}{1, 2, 3},
		},
		{
			name: "offset without limit",
			stmt: &statement.Select{From: from("t"), Offset: i64(5)},
			sql:  "SELECT * FROM `t` LIMIT 5, 18446744073709551615",
		},
		{
			name: "join group having",
			stmt: &statement.Select{
				Columns: []statement.Selectable{{Expr: statement.Column("u.name")}},
				From:    []statement.TableRef{{Table: "users", Alias: "u"}},
				Joins: []statement.Join{{
					Type:  statement.LeftJoin,
					Table: statement.TableRef{Table: "posts", Alias: "p"},
					On: []statement.Predicate{
						statement.Comparison{Column: "p.user_id", Operator: "=", Value: statement.Column("u.id")},
						statement.Comparison{Boolean: statement.And, Column: "p.state", Operator: "=", Value: lit("live")},
					},
				}},
				Where:   []statement.Predicate{eq("u.active", true)},
				GroupBy: []statement.Value{statement.Column("u.name")},
				Having: []statement.Predicate{
					statement.Comparison{Column: "COUNT(p.id)", Expr: true, Operator: statement.OpGt, Value: lit(2)},
				},
			},
			sql: "SELECT `u`.`name` FROM `users` AS `u` LEFT JOIN `posts` AS `p` ON `p`.`user_id` = `u`.`id` AND `p`.`state` = ? " +
				"WHERE `u`.`active` = ? GROUP BY `u`.`name` HAVING COUNT(p.id) > ?",
			args: []interface{}{"live", true, 2},
		},
		{
			name: "cross join has no ON",
			stmt: &statement.Select{
				From:  from("a"),
				Joins: []statement.Join{{Type: statement.CrossJoin, Table: statement.TableRef{Table: "b"}}},
			},
			sql: "SELECT * FROM `a` CROSS JOIN `b`",
		},
		{
			name: "null and lists",
			stmt: &statement.Select{
				From: from("t"),
				Where: []statement.Predicate{
					statement.Comparison{Column: "deleted_at", Operator: statement.OpIsNull},
					statement.Comparison{Boolean: statement.And, Column: "id", Operator: statement.OpIn, Value: statement.List{lit(1), lit(2), lit(3)}},
					statement.Comparison{Boolean: statement.Or, Column: "n", Operator: statement.OpBetween, Value: statement.List{lit(4), lit(5)}},
					statement.Comparison{Boolean: statement.And, Column: "x", Operator: statement.OpNotIn, Value: statement.List{}},
				},
			},
			sql:  "SELECT * FROM `t` WHERE `deleted_at` IS NULL AND `id` IN (?,?,?) OR `n` BETWEEN ? AND ? AND 1 = 1",
			args: []interface{}{1, 2, 3, 4, 5},
		},
		{
			name: "named binding",
			stmt: &statement.Select{
				From:  from("t"),
				Where: []statement.Predicate{statement.Comparison{Column: "id", Operator: "=", Value: statement.Bind("id", 7)}},
			},
			sql:  "SELECT * FROM `t` WHERE `id` = :id",
			args: []interface{}{sql.Named("id", 7)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := compile(t, my, tt.stmt)
			assert.Equal(t, tt.sql, q.SQL)
			assert.Equal(t, tt.args, q.Args)
		})
	}
}

func TestMySQLExists(t *testing.T) {
	sub := &statement.Select{
		Columns: []statement.Selectable{{Expr: statement.Raw("1")}},
		From:    from("orders"),
		Where: []statement.Predicate{
			statement.Comparison{Column: "orders.user_id", Operator: "=", Value: statement.Column("users.id")},
			statement.Comparison{Boolean: statement.And, Column: "orders.total", Operator: ">", Value: lit(100)},
		},
	}
	stmt := &statement.Select{
		From: from("users"),
		Where: []statement.Predicate{
			eq("active", 1),
			statement.Exists{Boolean: statement.And, Select: sub},
			statement.Comparison{Boolean: statement.Or, Column: "role", Operator: "=", Value: lit("admin")},
		},
	}
	q := compile(t, &MySQL{}, stmt)
	assert.Equal(t, "SELECT * FROM `users` WHERE `active` = ? AND EXISTS (SELECT 1 FROM `orders` WHERE `orders`.`user_id` = `users`.`id` AND `orders`.`total` > ?) OR `role` = ?", q.SQL)
	assert.Equal(t, []interface{}{1, 100, "admin"}, q.Args)

	stmt.Where[1] = statement.Exists{Boolean: statement.And, Select: sub, Negated: true}
	q = compile(t, &MySQL{}, stmt)
	assert.Contains(t, q.SQL, "AND NOT EXISTS (SELECT 1")
}

func TestMySQLSubQueries(t *testing.T) {
	inner := &statement.Select{
		Columns: []statement.Selectable{{Expr: statement.Column("user_id")}},
		From:    from("bans"),
		Where:   []statement.Predicate{eq("reason", "spam")},
	}
	stmt := &statement.Select{
		From: []statement.TableRef{{Sub: &statement.Select{From: from("users"), Where: []statement.Predicate{eq("age", 18)}}, Alias: "adults"}},
		Where: []statement.Predicate{
			statement.Comparison{Column: "id", Operator: statement.OpNotIn, Value: statement.SubQuery{Select: inner}},
			statement.Nested{Boolean: statement.Or, Select: &statement.Select{
				Columns: []statement.Selectable{{Expr: statement.Raw("COUNT(*) > 0")}},
				From:    from("vip"),
			}},
		},
	}
	q := compile(t, &MySQL{}, stmt)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM `users` WHERE `age` = ?) AS `adults` WHERE `id` NOT IN (SELECT `user_id` FROM `bans` WHERE `reason` = ?) OR (SELECT COUNT(*) > 0 FROM `vip`)", q.SQL)
	assert.Equal(t, []interface{}{18, "spam"}, q.Args)
}

func TestMySQLInsert(t *testing.T) {
	my := &MySQL{}

	q := compile(t, my, &statement.Insert{Into: "table", Columns: []string{"foo"}, Values: []statement.Value{lit(2), lit(3)}})
	assert.Equal(t, "INSERT INTO `table` (`foo`) VALUES (?),(?)", q.SQL)
	assert.Equal(t, []interface{}{2, 3}, q.Args)

	q = compile(t, my, &statement.Insert{
		Ignore:  true,
		Into:    "users",
		Columns: []string{"name", "email"},
		Values:  []statement.Value{lit("a"), lit("a@x"), lit("b"), statement.Null{}},
	})
	assert.Equal(t, "INSERT IGNORE INTO `users` (`name`, `email`) VALUES (?,?),(?,?)", q.SQL)
	assert.Equal(t, []interface{}{"a", "a@x", "b", nil}, q.Args)

	q = compile(t, my, &statement.Insert{
		Into:    "archive",
		Columns: []string{"id"},
		Select: &statement.Select{
			Columns: []statement.Selectable{{Expr: statement.Column("id")}},
			From:    from("users"),
			Where:   []statement.Predicate{eq("old", true)},
		},
	})
	assert.Equal(t, "INSERT INTO `archive` (`id`) SELECT `id` FROM `users` WHERE `old` = ?", q.SQL)
	assert.Equal(t, []interface{}{true}, q.Args)
}

func TestMySQLUpdateDelete(t *testing.T) {
	my := &MySQL{}

	q := compile(t, my, &statement.Update{
		Table: statement.TableRef{Table: "t"},
		Set:   []statement.Assignment{{Column: "f", Value: lit(5)}},
		Where: []statement.Predicate{eq("x", 1)},
	})
	assert.Equal(t, "UPDATE `t` SET `f`=? WHERE `x` = ?", q.SQL)
	assert.Equal(t, []interface{}{5, 1}, q.Args)

	q = compile(t, my, &statement.Update{
		Table:   statement.TableRef{Table: "t"},
		Set:     []statement.Assignment{{Column: "n", Value: statement.Raw("`n` + 1")}, {Column: "m", Value: lit("x")}},
		OrderBy: []statement.Order{{Expr: statement.Column("id"), Direction: statement.Asc}},
		Limit:   i64(3),
	})
	assert.Equal(t, "UPDATE `t` SET `n`=`n` + 1, `m`=? ORDER BY `id` ASC LIMIT 3", q.SQL)
	assert.Equal(t, []interface{}{"x"}, q.Args)

	q = compile(t, my, &statement.Delete{
		From:    statement.TableRef{Table: "logs"},
		Where:   []statement.Predicate{statement.Comparison{Column: "at", Operator: "<", Value: lit("2020-01-01")}},
		OrderBy: []statement.Order{{Expr: statement.Column("at")}},
		Limit:   i64(100),
	})
	assert.Equal(t, "DELETE FROM `logs` WHERE `at` < ? ORDER BY `at` LIMIT 100", q.SQL)
	assert.Equal(t, []interface{}{"2020-01-01"}, q.Args)
}

func TestStructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		stmt statement.Statement
		want error
	}{
		{"select without from", &statement.Select{}, ErrNoTable},
		{"delete without from", &statement.Delete{}, ErrNoTable},
		{"insert without into", &statement.Insert{Values: []statement.Value{lit(1)}}, ErrNoTable},
		{"insert without values", &statement.Insert{Into: "t"}, ErrNoValues},
		{"update without set", &statement.Update{Table: statement.TableRef{Table: "t"}}, ErrNoValues},
		{"update without table", &statement.Update{Set: []statement.Assignment{{Column: "a", Value: lit(1)}}}, ErrNoTable},
		{
			"values not a multiple of columns",
			&statement.Insert{Into: "t", Columns: []string{"a", "b"}, Values: []statement.Value{lit(1), lit(2), lit(3)}},
			ErrValueCount,
		},
		{
			"between with one value",
			&statement.Select{From: from("t"), Where: []statement.Predicate{
				statement.Comparison{Column: "a", Operator: statement.OpBetween, Value: statement.List{lit(1)}},
			}},
			ErrInvalidOperand,
		},
		{
			"list with scalar operator",
			&statement.Select{From: from("t"), Where: []statement.Predicate{
				statement.Comparison{Column: "a", Operator: statement.OpGt, Value: statement.List{lit(1)}},
			}},
			ErrInvalidOperand,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := (&MySQL{}).Compile(tt.stmt)
			require.Error(t, err)
			assert.Nil(t, q)
			assert.True(t, errors.Is(err, tt.want), err.Error())
			assert.True(t, IsStructural(err))
		})
	}
}

func TestCompileIsPure(t *testing.T) {
	stmt := &statement.Select{
		From:  from("t"),
		Where: []statement.Predicate{eq("a", 1), statement.Comparison{Boolean: statement.Or, Column: "b", Operator: "IN", Value: statement.List{lit(1), lit(2)}}},
		Limit: i64(1),
	}
	for _, c := range []Compiler{&MySQL{}, &SQLite{}} {
		first := compile(t, c, stmt)
		second := compile(t, c, stmt)
		assert.Equal(t, first, second)
		assert.Len(t, first.Args, 3)
	}
}

func TestMySQLCreateTable(t *testing.T) {
	stmt := &statement.CreateTable{
		Table:       "users",
		IfNotExists: true,
		Columns: []*statement.ColumnDef{
			{Name: "id", Type: statement.TypeBigInteger, Unsigned: true, AutoIncrement: true},
			{Name: "email", Type: statement.TypeString, Unique: true},
			{Name: "name", Type: statement.TypeString, Length: 100, Nullable: true, Comment: "display name"},
			{Name: "active", Type: statement.TypeBoolean, Default: lit(true)},
			{Name: "price", Type: statement.TypeDecimal},
			{Name: "state", Type: statement.TypeEnum, Values: []string{"on", "off"}, Default: lit("on")},
			{Name: "created_at", Type: statement.TypeTimestamp, Nullable: true, Default: statement.Raw("CURRENT_TIMESTAMP")},
		},
		Constraints: []statement.Constraint{
			{Kind: statement.IndexConstraint, Name: "users_name_index", Columns: []string{"name"}},
			{Kind: statement.ForeignConstraint, Foreign: &statement.ForeignKey{
				Name: "users_team_id_foreign", Columns: []string{"team_id"}, References: []string{"id"}, On: "teams",
				OnDelete: statement.Cascade,
			}},
		},
		Engine:  "InnoDB",
		Charset: "utf8mb4",
		Comment: "people",
	}
	q := compile(t, &MySQL{}, stmt)
	assert.Equal(t, "CREATE TABLE IF NOT EXISTS `users` ("+
		"`id` BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY, "+
		"`email` VARCHAR(255) NOT NULL UNIQUE, "+
		"`name` VARCHAR(100) NULL COMMENT 'display name', "+
		"`active` TINYINT(1) NOT NULL DEFAULT 1, "+
		"`price` DECIMAL(8,2) NOT NULL, "+
		"`state` ENUM('on','off') NOT NULL DEFAULT 'on', "+
		"`created_at` TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP, "+
		"INDEX `users_name_index` (`name`), "+
		"CONSTRAINT `users_team_id_foreign` FOREIGN KEY (`team_id`) REFERENCES `teams` (`id`) ON DELETE CASCADE"+
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COMMENT='people'", q.SQL)
	assert.Empty(t, q.Args)
}

func TestMySQLPrimaryKeyPlacement(t *testing.T) {
	my := &MySQL{}
	modify := &statement.AlterTable{
		Table: "users",
		Alterations: []statement.Alteration{
			{Kind: statement.ModifyColumn, Column: &statement.ColumnDef{Name: "id", Type: statement.TypeBigInteger, Unsigned: true, AutoIncrement: true}},
			{Kind: statement.ModifyColumn, Column: &statement.ColumnDef{Name: "code", Type: statement.TypeChar, Length: 8, Primary: true, Unique: true}},
		},
	}
	q := compile(t, my, modify)
	assert.Equal(t, "ALTER TABLE `users` MODIFY COLUMN `id` BIGINT UNSIGNED NOT NULL AUTO_INCREMENT, "+
		"MODIFY COLUMN `code` CHAR(8) NOT NULL", q.SQL)

	composite := &statement.CreateTable{
		Table: "users",
		Columns: []*statement.ColumnDef{
			{Name: "id", Type: statement.TypeInteger, Unsigned: true, AutoIncrement: true},
			{Name: "tenant_id", Type: statement.TypeInteger, Primary: true},
			{Name: "email", Type: statement.TypeString, Unique: true},
		},
		Constraints: []statement.Constraint{{Kind: statement.PrimaryConstraint, Columns: []string{"id", "tenant_id"}}},
	}
	q = compile(t, my, composite)
	assert.Equal(t, "CREATE TABLE `users` (`id` INT UNSIGNED NOT NULL AUTO_INCREMENT, `tenant_id` INT NOT NULL, "+
		"`email` VARCHAR(255) NOT NULL UNIQUE, PRIMARY KEY (`id`, `tenant_id`))", q.SQL)

	unkeyed := &statement.CreateTable{
		Table: "users",
		Columns: []*statement.ColumnDef{
			{Name: "id", Type: statement.TypeInteger, AutoIncrement: true},
			{Name: "code", Type: statement.TypeString},
		},
		Constraints: []statement.Constraint{{Kind: statement.PrimaryConstraint, Columns: []string{"code"}}},
	}
	_, err := my.Compile(unkeyed)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOperand)
	assert.True(t, IsStructural(err))

	unkeyed.Columns[0].Unique = true
	q = compile(t, my, unkeyed)
	assert.Equal(t, "CREATE TABLE `users` (`id` INT NOT NULL AUTO_INCREMENT UNIQUE, `code` VARCHAR(255) NOT NULL, "+
		"PRIMARY KEY (`code`))", q.SQL)
}

func TestMySQLAlterTable(t *testing.T) {
	stmt := &statement.AlterTable{
		Table: "users",
		Alterations: []statement.Alteration{
			{Kind: statement.AddColumn, Column: &statement.ColumnDef{Name: "age", Type: statement.TypeInteger, Nullable: true, After: "name"}},
			{Kind: statement.DropColumn, Name: "legacy"},
			{Kind: statement.ModifyColumn, Column: &statement.ColumnDef{Name: "name", Type: statement.TypeString, Length: 50}},
			{Kind: statement.AddUnique, Columns: []string{"email"}},
			{Kind: statement.DropForeign, Name: "users_team_id_foreign"},
			{Kind: statement.DropIndexAlteration, Name: "users_name_index"},
		},
	}
	q := compile(t, &MySQL{}, stmt)
	assert.Equal(t, "ALTER TABLE `users` ADD COLUMN `age` INT NULL AFTER `name`, DROP COLUMN `legacy`, "+
		"MODIFY COLUMN `name` VARCHAR(50) NOT NULL, ADD UNIQUE KEY `users_email_unique` (`email`), "+
		"DROP FOREIGN KEY `users_team_id_foreign`, DROP INDEX `users_name_index`", q.SQL)

	rename := &statement.AlterTable{Table: "users", Alterations: []statement.Alteration{{Kind: statement.RenameColumn, Name: "a", To: "b"}}}
	q = compile(t, &MySQL{Version: version.Must(version.NewVersion("8.0.32"))}, rename)
	assert.Equal(t, "ALTER TABLE `users` RENAME COLUMN `a` TO `b`", q.SQL)

	_, err := (&MySQL{Version: version.Must(version.NewVersion("5.7.40"))}).Compile(rename)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestMySQLOtherDDL(t *testing.T) {
	my := &MySQL{}
	view := &statement.Select{Columns: []statement.Selectable{{Expr: statement.Column("id")}}, From: from("users")}
	tests := []struct {
		stmt statement.Statement
		sql  string
	}{
		{&statement.CreateDatabase{Name: "app", IfNotExists: true, Charset: "utf8mb4"}, "CREATE DATABASE IF NOT EXISTS `app` CHARACTER SET utf8mb4"},
		{&statement.DropDatabase{Name: "app", IfExists: true}, "DROP DATABASE IF EXISTS `app`"},
		{&statement.DropTable{Tables: []string{"a", "b"}, IfExists: true}, "DROP TABLE IF EXISTS `a`, `b`"},
		{&statement.TruncateTable{Table: "a"}, "TRUNCATE TABLE `a`"},
		{
			&statement.CreateIndex{Name: "i", Table: "t", Unique: true, Columns: []statement.IndexColumn{{Name: "a"}, {Name: "b", Direction: statement.Desc}}},
			"CREATE UNIQUE INDEX `i` ON `t` (`a`, `b` DESC)",
		},
		{&statement.DropIndex{Name: "i", Table: "t"}, "DROP INDEX `i` ON `t`"},
		{&statement.CreateView{Name: "v", OrReplace: true, Select: view}, "CREATE OR REPLACE VIEW `v` AS SELECT `id` FROM `users`"},
		{&statement.DropView{Names: []string{"v"}, IfExists: true}, "DROP VIEW IF EXISTS `v`"},
	}
	for _, tt := range tests {
		q := compile(t, my, tt.stmt)
		assert.Equal(t, tt.sql, q.SQL)
	}

	bound := &statement.CreateView{Name: "v", Select: &statement.Select{From: from("users"), Where: []statement.Predicate{eq("a", 1)}}}
	_, err := my.Compile(bound)
	assert.ErrorIs(t, err, ErrBoundValues)
}
