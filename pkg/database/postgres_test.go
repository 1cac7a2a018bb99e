package database

import (
	"io/fs"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-grades-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "grades", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=grades sslmode=disable", dsn)
}

func TestMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrationsFS, "migrations/*.down.sql")
	require.NoError(t, err)

	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

// Values are validated as float64, so stored columns must not round them.
func TestMigrationsStoreGradeValuesUnrounded(t *testing.T) {
	ups, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)

	scaled := regexp.MustCompile(`(?i)\b(NUMERIC|DECIMAL)\s*\(\s*\d+\s*,\s*\d+\s*\)`)
	gradeColumn := regexp.MustCompile(`(?im)^\s*(weight|max_points|total_points|points)\s+DOUBLE PRECISION\b`)

	columns := 0
	for _, name := range ups {
		body, err := fs.ReadFile(migrationsFS, name)
		require.NoError(t, err)
		assert.False(t, scaled.Match(body), "%s declares a fixed-scale numeric column", name)
		columns += len(gradeColumn.FindAll(body, -1))
	}
	assert.Equal(t, 6, columns)
}
