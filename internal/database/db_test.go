package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := Settings{User: "app", Pass: "pw", Host: "db", Port: "3306", Name: "reservations"}.DSN()
	assert.Contains(t, dsn, "app:pw@tcp(db:3306)/reservations")
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestSplitStatements(t *testing.T) {
	src := `-- comment
CREATE TABLE a (
  id INT
);

-- another
CREATE TABLE b (id INT);
`
	stmts := SplitStatements(src)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "CREATE TABLE a")
	assert.Equal(t, "CREATE TABLE b (id INT)", stmts[1])
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	b, err := migrationFS.ReadFile("migrations/001_init.sql")
	require.NoError(t, err)
	stmts := SplitStatements(string(b))
	assert.Len(t, stmts, 6)
}
