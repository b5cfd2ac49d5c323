package main

import (
	"github.com/samber/do"

	"github.com/thomasrohde/lego/pkg/config"
	"github.com/thomasrohde/lego/pkg/runtime"
)

// newContainer registers the settings for projectDir. Settings are loaded
// lazily, on first use.
func newContainer(projectDir string) *do.Injector {
	i := do.New()
	do.Provide(i, func(i *do.Injector) (config.Settings, error) {
		s, _, err := config.Load(projectDir)
		return s, err
	})
	return i
}

// provideRuntime registers a runtime built from the container's settings.
// opts are applied after the settings, so command-line flags win.
func provideRuntime(i *do.Injector, opts ...runtime.Option) {
	do.Provide(i, func(i *do.Injector) (*runtime.Runtime, error) {
		s, err := do.Invoke[config.Settings](i)
		if err != nil {
			return nil, err
		}
		all := append([]runtime.Option{runtime.WithSettings(s)}, opts...)
		return runtime.New(all...), nil
	})
}
