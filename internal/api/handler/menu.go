package handler

import (
	"net/http"

	"github.com/edvin/opsportal/internal/api/response"
	"github.com/edvin/opsportal/internal/model"
)

// MenuSource lists the registered navigation descriptors.
type MenuSource interface {
	Menus() []model.Menu
}

type Menu struct {
	source MenuSource
}

func NewMenu(source MenuSource) *Menu {
	return &Menu{source: source}
}

// List godoc
//
//	@Summary		Aggregated portal navigation
//	@Tags			Menu
//	@Success		200 {object} response.ListResponse[model.Menu]
//	@Router			/menu [get]
func (h *Menu) List(w http.ResponseWriter, r *http.Request) {
	response.WriteList(w, http.StatusOK, h.source.Menus())
}
