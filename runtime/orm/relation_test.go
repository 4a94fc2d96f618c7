package orm

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasManyAndHasOne(t *testing.T) {
	ctx := context.Background()
	conn, mock := newConn(t)
	owner := &User{ID: 3}

	mock.ExpectQuery("SELECT `id`, `user_id`, `title` FROM `blog_posts` WHERE `user_id` = ?").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title"}).
			AddRow(int64(1), int64(3), "first").
			AddRow(int64(2), int64(3), "second"))
	posts, err := HasMany[Post](ctx, conn, owner, Keys{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "second", posts[1].Title)

	mock.ExpectQuery("SELECT `user_id`, `bio` FROM `profiles` WHERE `user_id` = ? LIMIT 1").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "bio"}))
	_, err = HasOne[Profile](ctx, conn, owner, Keys{})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBelongsTo(t *testing.T) {
	ctx := context.Background()
	conn, mock := newConn(t)

	mock.ExpectQuery("SELECT `id`, `name`, `email` FROM `users` WHERE `id` = ? LIMIT 1").
		WithArgs(int64(9)).
		WillReturnRows(userRows().AddRow(int64(9), "ann", "a@x"))
	u, err := BelongsTo[User](ctx, conn, &Post{ID: 1, UserID: 9}, Keys{})
	require.NoError(t, err)
	assert.Equal(t, "ann", u.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBelongsToMany(t *testing.T) {
	ctx := context.Background()
	conn, mock := newConn(t)

	mock.ExpectQuery("SELECT `roles`.`id`, `roles`.`name` FROM `roles` " +
		"INNER JOIN `role_user` ON `role_user`.`role_id` = `roles`.`id` WHERE `role_user`.`user_id` = ?").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "admin"))
	roles, err := BelongsToMany[Role](ctx, conn, &User{ID: 3}, PivotKeys{})
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, &Role{ID: 1, Name: "admin"}, roles[0])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPivotTable(t *testing.T) {
	assert.Equal(t, "role_user", pivotTable("users", "roles"))
	assert.Equal(t, "role_user", pivotTable("roles", "users"))
}
