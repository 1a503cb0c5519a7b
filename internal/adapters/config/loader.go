// Package config loads the optional trowel.yaml project file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load resolves the project configuration for cwd.
// The nearest trowel.yaml in cwd or a parent directory marks the project root;
// without one, cwd is the root and the defaults apply unchanged.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	absCwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve working directory")
	}

	cfg := domain.DefaultConfig()
	cfg.Root = absCwd

	configPath, found := findConfiguration(absCwd)
	if !found {
		return &cfg, nil
	}

	var file File
	if err := readAndUnmarshalYAML(configPath, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	cfg.Root = filepath.Dir(configPath)
	if err := l.apply(&cfg, &file); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	return &cfg, nil
}

func findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", false
		}
		currentDir = parentDir
	}
}

func (l *Loader) apply(cfg *domain.Config, file *File) error {
	paths, err := applyPaths(cfg.Paths, &file.Paths)
	if err != nil {
		return err
	}
	cfg.Paths = paths

	if file.Server != nil {
		if file.Server.Host != "" {
			cfg.Server.Host = file.Server.Host
		}
		if file.Server.Port != 0 {
			if file.Server.Port < 0 || file.Server.Port > 65535 {
				return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "port out of range"), "port", file.Server.Port)
			}
			cfg.Server.Port = file.Server.Port
		}
	}

	cfg.Markup = applyCommand(cfg.Markup, file.Markup)
	cfg.Style = applyCommand(cfg.Style, file.Style)
	for name, spec := range map[string]domain.CommandSpec{"markup": cfg.Markup, "style": cfg.Style} {
		if !spec.Enabled() && len(spec.Post) > 0 {
			l.Logger.Warn(fmt.Sprintf("'%s.post' in %s has no effect without '%s.command'", name, domain.ConfigFileName, name))
		}
	}

	policy, err := domain.ParsePolicy(file.Policy)
	if err != nil {
		return err
	}
	cfg.Policy = policy

	if file.Parallelism < 0 {
		return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "parallelism must not be negative"), "parallelism", file.Parallelism)
	}
	cfg.Parallelism = file.Parallelism

	if file.Debounce != "" {
		d, err := time.ParseDuration(file.Debounce)
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrInvalidConfig.Error()), "debounce", file.Debounce)
		}
		if d <= 0 {
			return zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "debounce must be positive"), "debounce", file.Debounce)
		}
		cfg.Debounce = d
	}

	return nil
}

func applyPaths(defaults domain.PathTable, dto *PathsDTO) (domain.PathTable, error) {
	if dto.Dist == "" && dto.Source == "" && dto.SpriteFragment == "" && len(dto.Routes) == 0 {
		return defaults, nil
	}

	dist := valueOr(dto.Dist, defaults.DistRoot())
	source := valueOr(dto.Source, defaults.SourceRoot())
	fragment := valueOr(dto.SpriteFragment, rebase(defaults.SpriteFragmentDir(), defaults.SourceRoot(), source))

	for name := range dto.Routes {
		if !domain.Category(name).Valid() {
			return domain.PathTable{}, zerr.With(domain.ErrUnknownCategory, "category", name)
		}
	}

	// Default routes follow their roots; explicit route directories are taken as written.
	routes := defaults.Routes()
	for i, r := range routes {
		r.Source = rebase(r.Source, defaults.SourceRoot(), source)
		r.Dest = rebase(r.Dest, defaults.DistRoot(), dist)

		override, ok := dto.Routes[r.Category.String()]
		if !ok {
			routes[i] = r
			continue
		}
		r.Source = valueOr(override.Source, r.Source)
		r.Dest = valueOr(override.Dest, r.Dest)
		if override.Pattern != "" {
			r.Pattern = override.Pattern
			if len(override.Watch) == 0 {
				r.Watch = nil
			}
		}
		if len(override.Watch) > 0 {
			r.Watch = override.Watch
		}
		routes[i] = r
	}

	return domain.NewPathTable(dist, source, fragment, routes)
}

func applyCommand(spec domain.CommandSpec, dto *CommandDTO) domain.CommandSpec {
	if dto == nil {
		return spec
	}
	if dto.Command != nil {
		spec.Command = dto.Command
		spec.DevArgs = nil
		spec.ProdArgs = nil
		spec.Stdin = false
	}
	if dto.Stdin != nil {
		spec.Stdin = *dto.Stdin
	}
	if dto.DevArgs != nil {
		spec.DevArgs = dto.DevArgs
	}
	if dto.ProdArgs != nil {
		spec.ProdArgs = dto.ProdArgs
	}
	if dto.Post != nil {
		spec.Post = dto.Post
	}
	return spec
}

// rebase moves p from under the directory from to the same place under to.
// Paths outside from are returned unchanged.
func rebase(p, from, to string) string {
	rel, err := filepath.Rel(from, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.Join(to, rel)
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func readAndUnmarshalYAML[T any](configPath string, target *T) error {
	// #nosec G304 -- configPath is discovered by findConfiguration
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	dec := yaml.NewDecoder(bytes.NewReader(configFile))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return zerr.Wrap(err, domain.ErrConfigParseFailed.Error())
	}

	return nil
}
