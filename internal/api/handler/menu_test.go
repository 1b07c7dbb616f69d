package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edvin/opsportal/internal/model"
)

type staticMenus []model.Menu

func (s staticMenus) Menus() []model.Menu { return s }

func TestMenuList(t *testing.T) {
	h := NewMenu(staticMenus{{
		ID:     "backups",
		Title:  "Git Backup",
		Routes: []model.MenuRoute{{Title: "Backups", Path: "/backups/list"}},
	}})
	rec := httptest.NewRecorder()

	h.List(rec, newRequest(http.MethodGet, "/menu", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[{"id":"backups","title":"Git Backup","routes":[{"title":"Backups","path":"/backups/list"}]}]}`, rec.Body.String())
}

func TestMenuList_Empty(t *testing.T) {
	rec := httptest.NewRecorder()

	NewMenu(staticMenus(nil)).List(rec, newRequest(http.MethodGet, "/menu", nil))

	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
}
