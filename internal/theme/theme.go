package theme

import (
	"context"
	"fmt"
	"strings"

	"github.com/Alias1177/FraudShield/internal/storage"
)

// ThemeKey is the storage key holding the theme preference
const ThemeKey = "fraudShieldTheme"

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

func Parse(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, nil
	case Dark:
		return Dark, nil
	}
	return "", fmt.Errorf("unknown theme %q, expected dark or light", s)
}

func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// BodyClass is the CSS class applied to the page body
func (t Theme) BodyClass() string {
	return string(t) + "-mode"
}

// Prefs persists the theme independently from the history
type Prefs struct {
	store storage.Store
}

func NewPrefs(store storage.Store) *Prefs {
	return &Prefs{store: store}
}

// Get returns Light when nothing valid is stored
func (p *Prefs) Get(ctx context.Context) (Theme, error) {
	raw, ok, err := p.store.Get(ctx, ThemeKey)
	if err != nil {
		return Light, err
	}
	if !ok {
		return Light, nil
	}
	t, err := Parse(raw)
	if err != nil {
		return Light, nil
	}
	return t, nil
}

func (p *Prefs) Set(ctx context.Context, t Theme) error {
	if _, err := Parse(string(t)); err != nil {
		return err
	}
	return p.store.Set(ctx, ThemeKey, string(t))
}

func (p *Prefs) Toggle(ctx context.Context) (Theme, error) {
	current, err := p.Get(ctx)
	if err != nil {
		return current, err
	}
	next := current.Toggle()
	return next, p.Set(ctx, next)
}
