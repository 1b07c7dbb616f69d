package menu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/opsportal/internal/model"
)

func backupsMenu() model.Menu {
	return model.Menu{
		ID:     "backups",
		Title:  "Git Backup",
		Icon:   "Backup",
		Routes: []model.MenuRoute{{Title: "Backups", Path: "/backups/list"}},
	}
}

func TestRegistry_RegisterAndList(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(backupsMenu()))
	require.NoError(t, r.Register(model.Menu{ID: "firewall", Title: "Firewall", Routes: []model.MenuRoute{{Title: "Rules", Path: "/firewall"}}}))

	menus := r.Menus()
	require.Len(t, menus, 2)
	assert.Equal(t, "backups", menus[0].ID)
	assert.Equal(t, "firewall", menus[1].ID)
}

func TestRegistry_RejectsMissingKeys(t *testing.T) {
	r := NewRegistry()

	err := r.Register(model.Menu{ID: "logs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title, routes")

	err = r.Register(model.Menu{ID: "logs", Title: "Logs", Routes: []model.MenuRoute{{Title: "All", Path: "logs"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must start with /")
	assert.Empty(t, r.Menus())
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(backupsMenu()))

	err := r.Register(backupsMenu())
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Len(t, r.Menus(), 1)
}

func TestRegistry_MenusReturnsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(backupsMenu()))

	menus := r.Menus()
	menus[0].Routes[0].Path = "/mutated"
	assert.Equal(t, "/backups/list", r.Menus()[0].Routes[0].Path)
}

func TestRegistry_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
menus:
  - id: firewall
    title: Firewall
    icon: Shield
    routes:
      - title: Rules
        path: /firewall/rules
  - id: logs
    title: Log Analytics
    routes:
      - title: Search
        path: /logs/search
`), 0o600))

	r := NewRegistry()
	require.NoError(t, r.LoadFile(path))
	menus := r.Menus()
	require.Len(t, menus, 2)
	assert.Equal(t, "Shield", menus[0].Icon)
	assert.Equal(t, "/logs/search", menus[1].Routes[0].Path)
}

func TestRegistry_LoadFileErrors(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("menus:\n  - id: x\n"), 0o600))
	err := r.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required keys")
}
