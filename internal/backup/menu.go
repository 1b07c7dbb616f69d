package backup

import "github.com/edvin/opsportal/internal/model"

// Menu is the navigation descriptor of the backup module.
func Menu() model.Menu {
	return model.Menu{
		ID:    "backups",
		Title: "Git Backup",
		Icon:  "Backup",
		Routes: []model.MenuRoute{
			{Title: "Backups", Path: "/backups/list"},
			{Title: "Restore", Path: "/backups/restore"},
		},
	}
}
