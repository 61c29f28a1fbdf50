package profiles_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/internal/profiles"
)

func TestManagerSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	manager := profiles.NewManager(dir)

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type:     "postgres",
			Host:     "db.internal",
			Port:     5432,
			Database: "clinic",
		},
		Graph: config.GraphConfig{
			Dir: "./clinic_graph",
		},
	}

	profile, err := manager.Save("Prod Clinic", cfg)
	require.NoError(t, err)
	require.Equal(t, "postgres", profile.Type)
	require.Equal(t, "./clinic_graph", profile.GraphDir)
	require.FileExists(t, profile.Path)

	loaded, err := manager.Load(profile.Name)
	require.NoError(t, err)
	require.Equal(t, cfg.Database.Host, loaded.Database.Host)
	require.Equal(t, cfg.Database.Type, loaded.Database.Type)
	require.Equal(t, cfg.Graph.Dir, loaded.Graph.Dir)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestManagerListFiltersByType(t *testing.T) {
	dir := t.TempDir()
	manager := profiles.NewManager(dir)

	writeConfig(t, dir, "alpha-postgres.yaml", "postgres")
	writeConfig(t, dir, "beta-sqlite.yaml", "sqlite")

	all, err := manager.List("")
	require.NoError(t, err)
	require.Len(t, all, 2)

	postgresOnly, err := manager.List("postgres")
	require.NoError(t, err)
	require.Len(t, postgresOnly, 1)
	require.Equal(t, "postgres", postgresOnly[0].Type)
	require.Equal(t, "./schema_graph", postgresOnly[0].GraphDir)

	sqliteOnly, err := manager.List("sqlite")
	require.NoError(t, err)
	require.Len(t, sqliteOnly, 1)
	require.Equal(t, "sqlite", sqliteOnly[0].Type)
}

func TestManagerDelete(t *testing.T) {
	dir := t.TempDir()
	manager := profiles.NewManager(dir)

	writeConfig(t, dir, "gamma.yaml", "postgres")

	require.NoError(t, manager.Delete("gamma"))
	require.NoFileExists(t, filepath.Join(dir, "gamma.yaml"))

	err := manager.Delete("gamma")
	require.Error(t, err)
	require.Contains(t, err.Error(), "profile not found")
}

func writeConfig(t *testing.T, dir, name, dbType string) {
	t.Helper()

	cfg := config.Config{
		Database: config.DatabaseConfig{
			Type:     dbType,
			Host:     "localhost",
			Port:     5432,
			Database: "clinic",
			Path:     "./clinic.db",
		},
	}

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	err = os.WriteFile(path, data, 0o644)
	require.NoError(t, err)
}
