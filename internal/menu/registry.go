package menu

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/edvin/opsportal/internal/model"
)

var ErrDuplicate = errors.New("menu already registered")

// Registry collects module navigation descriptors at startup. Registration
// order is preserved in Menus.
type Registry struct {
	mu    sync.RWMutex
	menus []model.Menu
	ids   map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]struct{})}
}

// Register adds a descriptor. id, title and at least one route with a path
// are required.
func (r *Registry) Register(m model.Menu) error {
	if err := check(m); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[m.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, m.ID)
	}
	r.ids[m.ID] = struct{}{}
	r.menus = append(r.menus, clone(m))
	return nil
}

func check(m model.Menu) error {
	var missing []string
	if strings.TrimSpace(m.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(m.Title) == "" {
		missing = append(missing, "title")
	}
	if len(m.Routes) == 0 {
		missing = append(missing, "routes")
	}
	if len(missing) > 0 {
		return fmt.Errorf("menu %q: missing required keys: %s", m.ID, strings.Join(missing, ", "))
	}
	for i, route := range m.Routes {
		if !strings.HasPrefix(route.Path, "/") {
			return fmt.Errorf("menu %q: route %d: path %q must start with /", m.ID, i, route.Path)
		}
	}
	return nil
}

func clone(m model.Menu) model.Menu {
	m.Routes = append([]model.MenuRoute(nil), m.Routes...)
	return m
}

// Menus returns a copy of all registered descriptors.
func (r *Registry) Menus() []model.Menu {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Menu, 0, len(r.menus))
	for _, m := range r.menus {
		out = append(out, clone(m))
	}
	return out
}

type fileConfig struct {
	Menus []model.Menu `yaml:"menus"`
}

// LoadFile registers every descriptor listed under "menus" in a YAML file.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read menu config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse menu config: %w", err)
	}
	for _, m := range cfg.Menus {
		if err := r.Register(m); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}
