package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{"empty", "  \n ", nil},
		{"single without semicolon", "SELECT 1", []string{"SELECT 1"}},
		{"several", "CREATE TABLE a (id INT);\nCREATE TABLE b (id INT);\n", []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"}},
		{"semicolon in quotes", "INSERT INTO t VALUES ('a;b', \"c;d\", `e;f`);", []string{"INSERT INTO t VALUES ('a;b', \"c;d\", `e;f`)"}},
		{"escaped quote", `INSERT INTO t VALUES ('it\'s;here');`, []string{`INSERT INTO t VALUES ('it\'s;here')`}},
		{"line comments", "-- first; not a statement\nSELECT 1; # trailing; comment\nSELECT 2;", []string{"SELECT 1", "SELECT 2"}},
		{"block comment", "SELECT /* a; b */ 1;", []string{"SELECT   1"}},
		{"empty statements", ";;SELECT 1;;", []string{"SELECT 1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitStatements(tt.script))
		})
	}
}
