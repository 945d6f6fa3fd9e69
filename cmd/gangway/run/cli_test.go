package run

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gangwaylabs/gangway/wasi"
)

func TestMountGrammar(t *testing.T) {
	var m mounts
	require.NoError(t, m.Set("/data=/srv/data"))
	require.NoError(t, m.Set("/tmp,=ro"))

	assert.Equal(t, "/srv/data", m.paths["/data"])
	assert.Equal(t, wasi.DirectoryRights, m.rights["/data"])
	assert.Equal(t, "/tmp", m.paths["/tmp"])
	assert.Equal(t, wasi.ReadOnlyRights, m.rights["/tmp"])

	assert.Error(t, m.Set("/x,bogus"))
	assert.Error(t, m.Set(",=ro"))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
args: [one, two]
env:
  HOME: /home/guest
mounts:
  /work: /srv/work
`), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, cfg.Args)
	assert.Equal(t, "/home/guest", cfg.Env["HOME"])
	assert.Equal(t, "/srv/work", cfg.Mounts["/work"])

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
