package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelforge-app/mfsetup/internal/manifest"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	store := manifest.NewStore(
		filepath.Join(dir, "manifest.json"),
		filepath.Join(dir, "version.txt"),
		"Modelforge",
	)
	return New(store)
}

func TestRegisterAndQueryModule(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.RegisterModule("core", "1.0.0"))

	installed, err := reg.IsInstalled("core")
	require.NoError(t, err)
	assert.True(t, installed)

	version, err := reg.ModuleVersion("core")
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	rec, err := reg.GetRecord("core")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.InstallDate.IsZero())
	assert.Nil(t, rec.UpdateDate)
}

func TestRegisterExistingModuleKeepsInstallDate(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.RegisterModule("core", "1.0.0"))
	before, err := reg.GetRecord("core")
	require.NoError(t, err)

	require.NoError(t, reg.RegisterModule("core", "1.1.0"))
	after, err := reg.GetRecord("core")
	require.NoError(t, err)

	assert.Equal(t, "1.1.0", after.Version)
	assert.Equal(t, before.InstallDate, after.InstallDate)
	require.NotNil(t, after.UpdateDate)
}

func TestUnregisterModule(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.RegisterModule("render", "1.0.0"))
	require.NoError(t, reg.UnregisterModule("render"))

	installed, err := reg.IsInstalled("render")
	require.NoError(t, err)
	assert.False(t, installed)

	// Unregistering an unknown module is not an error.
	require.NoError(t, reg.UnregisterModule("render"))
}

func TestModuleVersionUnknownModule(t *testing.T) {
	reg := newTestRegistry(t)

	version, err := reg.ModuleVersion("ghost")
	require.NoError(t, err)
	assert.Equal(t, "", version)
}

func TestUpdateModuleVersion(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.RegisterModule("core", "1.0.0"))
	require.NoError(t, reg.UpdateModuleVersion("core", "1.1.0"))

	version, err := reg.ModuleVersion("core")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", version)
}

func TestUpdateModuleVersionUnregistered(t *testing.T) {
	reg := newTestRegistry(t)

	err := reg.UpdateModuleVersion("ghost", "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestModuleListsAndInfo(t *testing.T) {
	reg := newTestRegistry(t)

	require.NoError(t, reg.RegisterModule("viewer", "1.0.0"))
	require.NoError(t, reg.RegisterModule("core", "1.0.0"))
	require.NoError(t, reg.RegisterModule("render", "1.0.0"))

	all, err := reg.AllModules()
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "render", "viewer"}, all)

	installed, err := reg.InstalledModules()
	require.NoError(t, err)
	assert.Equal(t, all, installed)

	info, err := reg.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, 3, info.TotalModules)
	assert.Equal(t, 3, info.InstalledCount)
	assert.Equal(t, all, info.Modules)
}
