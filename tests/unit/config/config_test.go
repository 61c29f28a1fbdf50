package config_test

import (
	"embed"
	"os"
	"path/filepath"
	"testing"

	appconfig "github.com/kadirbelkuyu/schemagraph/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/*.yaml
var configSamples embed.FS

func writeSample(t *testing.T, name string) string {
	t.Helper()

	data, err := configSamples.ReadFile(filepath.Join("testdata", name))
	require.NoErrorf(t, err, "failed to read embedded sample %s", name)

	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	return path
}

func TestLoadPostgresConfigDefaults(t *testing.T) {
	path := writeSample(t, "postgres.yaml")

	cfg, err := appconfig.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Type, "default database type should be postgres")
	assert.Equal(t, 5432, cfg.Database.Port, "postgres port should default to 5432 when omitted")
	assert.Equal(t, "disable", cfg.Database.SSLMode, "SSL should default to disable for postgres")
	assert.Equal(t, "files", cfg.Graph.Store, "graph store should default to files")
	assert.Equal(t, 2, cfg.Builder.JunctionColumnLimit)
	assert.Equal(t, 5, cfg.Search.TopK)

	require.NoError(t, cfg.Validate())

	conn := cfg.GetConnectionString()
	assert.Contains(t, conn, "host=localhost")
	assert.Contains(t, conn, "port=5432")
	assert.Contains(t, conn, "user=sample")
	assert.Contains(t, conn, "dbname=sampledb")
}

func TestLoadMySQLConfig(t *testing.T) {
	path := writeSample(t, "mysql.yaml")

	cfg, err := appconfig.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Type, "mariadb should normalize to mysql")
	assert.Equal(t, 3306, cfg.Database.Port, "mysql port should default to 3306 when omitted")
	require.NoError(t, cfg.Validate())

	conn := cfg.GetConnectionString()
	assert.Contains(t, conn, "@tcp(db.internal:3306)/warehouse")
	assert.Contains(t, conn, "parseTime=true")
}

func TestLoadSQLiteConfig(t *testing.T) {
	path := writeSample(t, "sqlite.yaml")

	cfg, err := appconfig.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Type)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "./data/app.db", cfg.GetConnectionString(), "sqlite DSN is the file path")
}

func TestLoadMongoStoreConfig(t *testing.T) {
	path := writeSample(t, "mongo-store.yaml")

	cfg, err := appconfig.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "mongo", cfg.Graph.Store)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "mongodb://graphs.internal:27017/schemagraph", cfg.GetMongoURI(),
		"explicit graph.uri should be returned as-is")
}

func TestValidateRejectsUnknownTypes(t *testing.T) {
	cfg := &appconfig.Config{}
	cfg.Database.Type = "oracle"
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate(), "unsupported database type must fail validation")

	cfg = &appconfig.Config{}
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = "./app.db"
	cfg.Graph.Store = "s3"
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate(), "unsupported graph store must fail validation")
}
