package dbh

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tallycam/tallycam/pkg/log"
)

func TestDBNotExist(t *testing.T) {
	require.False(t, DBNotExistRegex.MatchString(`does not exist`))
	require.True(t, DBNotExistRegex.MatchString(`database "foobar" does not exist`))
	require.False(t, DBNotExistRegex.MatchString(`table "foobar" does not exist`))
	require.False(t, DBNotExistRegex.MatchString(`"foobar" does not exist`))
}

func TestOpenSqlite(t *testing.T) {
	logger := log.NewTestingLog(t)
	cfg := MakeSqliteConfig(filepath.Join(t.TempDir(), "test.sqlite"))
	migrations := MakeMigrations(logger, []string{
		"CREATE TABLE thing (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
		"INSERT INTO thing (name) VALUES ('first')",
	})

	db, err := OpenDB(logger, cfg, migrations, 0)
	require.NoError(t, err)

	type thing struct {
		ID   int64
		Name string
	}
	rec := thing{}
	require.NoError(t, db.First(&rec).Error)
	require.Equal(t, "first", rec.Name)

	// Reopening must not rerun migrations
	db2, err := OpenDB(logger, cfg, migrations, 0)
	require.NoError(t, err)
	things := []thing{}
	require.NoError(t, db2.Find(&things).Error)
	require.Len(t, things, 1)
}
