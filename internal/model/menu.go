package model

// Menu is a module's navigation descriptor as shown in the aggregated portal menu.
type Menu struct {
	ID     string      `json:"id" yaml:"id"`
	Title  string      `json:"title" yaml:"title"`
	Icon   string      `json:"icon,omitempty" yaml:"icon"`
	Routes []MenuRoute `json:"routes" yaml:"routes"`
}

type MenuRoute struct {
	Title string `json:"title" yaml:"title"`
	Path  string `json:"path" yaml:"path"`
}
