package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbkit-go/dbkit/query/executor"
	"github.com/dbkit-go/dbkit/query/sqlgen"
	"github.com/dbkit-go/dbkit/query/statement"
)

type recorder struct {
	queries []*sqlgen.Query
}

func (r *recorder) Run(_ context.Context, q *sqlgen.Query) (executor.Result, error) {
	r.queries = append(r.queries, q)
	return executor.Result{RowsAffected: 1}, nil
}

func (r *recorder) Fetch(_ context.Context, q *sqlgen.Query) (*executor.Rows, error) {
	r.queries = append(r.queries, q)
	return nil, nil
}

func mysql() *Builder  { return New(&sqlgen.MySQL{}, nil) }
func sqlite() *Builder { return New(&sqlgen.SQLite{}, nil) }

func requireSQL(t *testing.T, b interface {
	ToSQL() (string, []interface{}, error)
}, wantSQL string, wantArgs ...interface{}) {
	t.Helper()
	sql, args, err := b.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, wantSQL, sql)
	if len(wantArgs) == 0 {
		assert.Empty(t, args)
		return
	}
	assert.Equal(t, wantArgs, args)
}

func TestSelectBasic(t *testing.T) {
	requireSQL(t, mysql().Select("id").From("table"), "SELECT `id` FROM `table`")
	requireSQL(t, sqlite().Select("id").From("table"), `SELECT "id" FROM "table"`)
	requireSQL(t, mysql().Select().From("users"), "SELECT * FROM `users`")
	requireSQL(t, mysql().Select("u.id AS uid", "name n").From("users u"),
		"SELECT `u`.`id` AS `uid`, `name` AS `n` FROM `users` AS `u`")
}

func TestSelectFromReplaces(t *testing.T) {
	s := mysql().Select().From("first").From("second")
	requireSQL(t, s, "SELECT * FROM `second`")

	s.AddFrom("third", "t")
	requireSQL(t, s, "SELECT * FROM `second`, `third` AS `t`")
}

func TestWhereResets(t *testing.T) {
	s := mysql().Select().From("t").Where("a", "=", 1).Where("b", "=", 2)
	requireSQL(t, s, "SELECT * FROM `t` WHERE `b` = ?", 2)

	s.AndWhere("c", ">", 3).OrWhere("d", "<", 4)
	requireSQL(t, s, "SELECT * FROM `t` WHERE `b` = ? AND `c` > ? OR `d` < ?", 2, 3, 4)

	s.WhereExists(SelectFunc(func(q *Select) { q.From("x") }))
	requireSQL(t, s, "SELECT * FROM `t` WHERE EXISTS (SELECT * FROM `x`)")
}

func TestWhereNormalization(t *testing.T) {
	s := mysql().Select().From("t").
		Where("deleted_at", "=", nil).
		AndWhere("id", "=", []int{1, 2}).
		AndWhere("state", "<>", []string{"a"}).
		AndWhere("parent", "!=", nil).
		AndWhere("n", "between", []int{5, 9})
	requireSQL(t, s,
		"SELECT * FROM `t` WHERE `deleted_at` IS NULL AND `id` IN (?,?) AND `state` NOT IN (?) AND `parent` IS NOT NULL AND `n` BETWEEN ? AND ?",
		1, 2, "a", 5, 9)
}

func TestWhereFuncGroups(t *testing.T) {
	s := mysql().Select().From("t").
		Where("a", "=", 1).
		AndWhereFunc(func(c *Clause) {
			c.Where("b", "=", 2).OrWhere("c", "=", 3)
		}).
		OrWhereFunc(func(c *Clause) {})
	requireSQL(t, s, "SELECT * FROM `t` WHERE `a` = ? AND (`b` = ? OR `c` = ?)", 1, 2, 3)
}

func TestWhereVariants(t *testing.T) {
	s := mysql().Select().From("t").
		WhereRaw("created_at", ">", "NOW()").
		AndWhereColumn("a", "=", "b").
		OrWhereExpr("1 = 1").
		AndWhereNotExists(mysql().Select("id").From("bans").WhereColumn("bans.user_id", "=", "t.id")).
		OrWhereSub(SelectFunc(func(q *Select) {
			q.AddColumn(statement.Raw("COUNT(*) > 0"), "").From("vip").Where("level", ">", 2)
		}))
	requireSQL(t, s,
		"SELECT * FROM `t` WHERE `created_at` > NOW() AND `a` = `b` OR 1 = 1 AND NOT EXISTS (SELECT `id` FROM `bans` WHERE `bans`.`user_id` = `t`.`id`) OR (SELECT COUNT(*) > 0 FROM `vip` WHERE `level` > ?)",
		2)
}

func TestExistsScenario(t *testing.T) {
	orders := mysql().Select().AddColumn(statement.Raw("1"), "").From("orders").
		WhereColumn("orders.user_id", "=", "users.id").
		AndWhere("orders.total", ">", 100)
	s := mysql().Select().From("users").
		Where("active", "=", 1).
		AndWhereExists(orders).
		OrWhere("role", "=", "admin")
	requireSQL(t, s,
		"SELECT * FROM `users` WHERE `active` = ? AND EXISTS (SELECT 1 FROM `orders` WHERE `orders`.`user_id` = `users`.`id` AND `orders`.`total` > ?) OR `role` = ?",
		1, 100, "admin")
}

func TestPlaceholderOrder(t *testing.T) {
	s := mysql().Select("p.user_id").AddColumn(statement.Raw("COUNT(*)"), "n").From("posts", "p").
		LeftJoin("users AS u", func(c *Clause) {
			c.On("u.id", "=", "p.user_id").AndWhere("u.kind", "=", "join")
		}).
		Where("p.state", "=", "where").
		GroupBy("p.user_id").
		HavingAggregate("COUNT(*)", ">", "having").
		OrderBy("n", statement.Desc).
		Limit(5)
	sql, args, err := s.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, "SELECT `p`.`user_id`, COUNT(*) AS `n` FROM `posts` AS `p` LEFT JOIN `users` AS `u` ON `u`.`id` = `p`.`user_id` AND `u`.`kind` = ? WHERE `p`.`state` = ? GROUP BY `p`.`user_id` HAVING COUNT(*) > ? ORDER BY `n` DESC LIMIT 5", sql)
	assert.Equal(t, []interface{}{"join", "where", "having"}, args)
}

func TestOrderDirections(t *testing.T) {
	s := sqlite().Select().From("t").OrderBy("a").AddOrderBy("b", statement.Desc).AddOrderBy("c", statement.NoDirection).
		Limit(10).Offset(20)
	requireSQL(t, s, `SELECT * FROM "t" ORDER BY "a" ASC, "b" DESC, "c" LIMIT 10 OFFSET 20`)
}

func TestFromSubAndCrossJoin(t *testing.T) {
	s := mysql().Select().FromSub(mysql().Select("id").From("a").Where("x", "=", 1), "sub").CrossJoin("b").Distinct()
	requireSQL(t, s, "SELECT DISTINCT * FROM (SELECT `id` FROM `a` WHERE `x` = ?) AS `sub` CROSS JOIN `b`", 1)
}

func TestFlatten(t *testing.T) {
	c := newClause(&base{})
	c.WhereFunc(func(g *Clause) {
		g.Where("a", "=", 1).OrWhere("b", "=", 2)
	}).AndWhere("c", "=", 3)
	assert.Equal(t, "(a = ? OR b = ?) AND c = ?", c.String())

	c = newClause(&base{})
	c.Where("x", "in", []int{1, 2}).AndWhereColumn("y", "=", "z").OrWhere("w", "=", nil).AndWhere("v", "between", []int{1, 2})
	assert.Equal(t, "x IN (?, ?) AND y = z OR w IS NULL AND v BETWEEN ? AND ?", Flatten(c.Predicates()))
}

func TestBuilderErrors(t *testing.T) {
	s := mysql().Select().From("t").Where("a", "~~", 1)
	_, _, err := s.ToSQL()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operator")

	s = mysql().Select().From("t").WhereFunc(func(c *Clause) { c.Where("a", "nope", 1) })
	assert.Error(t, s.Err())

	_, err = mysql().Delete().From("t").Execute(context.Background())
	assert.ErrorIs(t, err, ErrNoRunner)

	_, _, err = New(nil, nil).Select().From("t").ToSQL()
	assert.ErrorIs(t, err, ErrNoCompiler)

	_, _, err = mysql().Select().ToSQL()
	assert.ErrorIs(t, err, sqlgen.ErrNoTable)
}

func TestInsert(t *testing.T) {
	requireSQL(t, mysql().Insert().Into("table").Columns("foo").Values(2, 3),
		"INSERT INTO `table` (`foo`) VALUES (?),(?)", 2, 3)

	i := sqlite().Insert().Into("users").
		Row(map[string]interface{}{"name": "a", "email": "a@x"}).
		Row(map[string]interface{}{"email": "b@x", "name": "b"})
	requireSQL(t, i, `INSERT INTO "users" ("email", "name") VALUES (?,?),(?,?)`, "a@x", "a", "b@x", "b")

	i.Row(map[string]interface{}{"other": 1})
	assert.Error(t, i.Err())

	requireSQL(t, mysql().Insert().Ignore().Into("archive").Columns("id").FromSelect(mysql().Select("id").From("users")),
		"INSERT IGNORE INTO `archive` (`id`) SELECT `id` FROM `users`")
}

func TestInsertTidyAfterExecute(t *testing.T) {
	rec := &recorder{}
	i := New(&sqlgen.MySQL{}, rec).Insert().Into("t").Columns("a").Values(1, 2)

	res, err := i.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)
	require.Len(t, rec.queries, 1)
	assert.Equal(t, "INSERT INTO `t` (`a`) VALUES (?),(?)", rec.queries[0].SQL)

	i.Values(3)
	requireSQL(t, i, "INSERT INTO `t` (`a`) VALUES (?)", 3)
}

func TestUpdate(t *testing.T) {
	u := mysql().Update().Table("t").Set("f", 5).Where("x", "=", 1)
	requireSQL(t, u, "UPDATE `t` SET `f`=? WHERE `x` = ?", 5, 1)

	u = mysql().Update().Table("t").SetRaw("n", "`n` + 1").Set("m", mysql().Select().AddColumn(statement.Raw("MAX(id)"), "").From("o")).OrderBy("id").Limit(1)
	requireSQL(t, u, "UPDATE `t` SET `n`=`n` + 1, `m`=(SELECT MAX(id) FROM `o`) ORDER BY `id` ASC LIMIT 1")

	rec := &recorder{}
	u = New(&sqlgen.SQLite{}, rec).Update().Table("t").Set("a", 1).Where("id", "=", 2)
	_, err := u.Execute(context.Background())
	require.NoError(t, err)
	_, _, err = u.ToSQL()
	assert.ErrorIs(t, err, sqlgen.ErrNoValues)
	u.Set("a", 3)
	requireSQL(t, u, `UPDATE "t" SET "a"=? WHERE "id" = ?`, 3, 2)
}

func TestColumnNamesAreQuoted(t *testing.T) {
	requireSQL(t, mysql().Select().From("t").Where("name) OR (1=1", "=", 1),
		"SELECT * FROM `t` WHERE `name) OR (1=1` = ?", 1)
	requireSQL(t, sqlite().Select("COUNT(id)").From("t").OrderBy("MAX(x)"),
		`SELECT "COUNT(id)" FROM "t" ORDER BY "MAX(x)" ASC`)

	s := mysql().Select("kind").AddColumn(statement.Raw("COUNT(*)"), "n").From("t").
		GroupBy("kind").
		HavingAggregate("COUNT(*)", ">", 1).
		OrHavingAggregate("SUM(size)", "between", []int{10, 20})
	requireSQL(t, s,
		"SELECT `kind`, COUNT(*) AS `n` FROM `t` GROUP BY `kind` HAVING COUNT(*) > ? OR SUM(size) BETWEEN ? AND ?",
		1, 10, 20)
}

func TestSliceValues(t *testing.T) {
	tags := []string{"a", "b"}
	requireSQL(t, mysql().Update().Table("t").Set("tags", tags).Where("id", "=", 1),
		"UPDATE `t` SET `tags`=? WHERE `id` = ?", tags, 1)
	requireSQL(t, mysql().Insert().Into("t").Columns("id", "tags").Values(1, tags),
		"INSERT INTO `t` (`id`, `tags`) VALUES (?,?)", 1, tags)
	requireSQL(t, sqlite().Insert().Into("t").Row(map[string]interface{}{"tags": tags}),
		`INSERT INTO "t" ("tags") VALUES (?)`, tags)

	requireSQL(t, mysql().Select().From("t").Where("tag", "in", tags).AndWhere("n", "not between", [2]int{1, 5}),
		"SELECT * FROM `t` WHERE `tag` IN (?,?) AND `n` NOT BETWEEN ? AND ?", "a", "b", 1, 5)
	requireSQL(t, mysql().Select().From("t").Where("blob", "=", []byte("x")),
		"SELECT * FROM `t` WHERE `blob` = ?", []byte("x"))
}

func TestDelete(t *testing.T) {
	requireSQL(t, mysql().Delete().From("logs").Where("at", "<", "2020").OrderBy("at").Limit(10),
		"DELETE FROM `logs` WHERE `at` < ? ORDER BY `at` ASC LIMIT 10", "2020")

	_, _, err := sqlite().Delete().From("logs").Limit(10).ToSQL()
	assert.ErrorIs(t, err, sqlgen.ErrUnsupported)
}

func TestStatementSnapshot(t *testing.T) {
	s := mysql().Select("a").From("t").Where("x", "=", 1).Limit(3)
	snap := s.Statement()
	s.AndWhere("y", "=", 2).Limit(4)
	assert.Len(t, snap.Where, 1)
	assert.Equal(t, int64(3), *snap.Limit)
}
