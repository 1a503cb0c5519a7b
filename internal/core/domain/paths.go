package domain

import (
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

const (
	// DefaultDistRoot is the directory served by the dev server.
	DefaultDistRoot = "public"
	// DefaultSourceRoot is the directory watched for changes.
	DefaultSourceRoot = "src"
	// DefaultSpriteFragmentDir receives the generated sprite SCSS fragment.
	DefaultSpriteFragmentDir = "src/style/vendors/gulp-spritesmith"
)

// Route binds one category to its source directory, source glob and destination directory.
// Source, Dest and Watch globs are relative to the project root; Pattern and Watch are
// matched against paths relative to Source.
type Route struct {
	Category Category
	Source   string
	Dest     string
	Pattern  string
	Watch    []string
}

// OutputPath returns the project-relative destination for a source at rel (relative to Source).
func (r Route) OutputPath(rel string) string {
	switch r.Category {
	case CategoryMarkup:
		return filepath.Join(r.Dest, trimExt(filepath.Base(rel))+".html")
	case CategoryStyle:
		return filepath.Join(r.Dest, trimExt(rel)+".css")
	case CategoryAppScript:
		return filepath.Join(r.Dest, trimExt(filepath.Base(rel))+".js")
	default:
		return filepath.Join(r.Dest, rel)
	}
}

func (r Route) clone() Route {
	r.Watch = slices.Clone(r.Watch)
	return r
}

func trimExt(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p))
}

// PathTable is the immutable mapping from category to route.
// It is built once at startup and passed to every component that needs it.
type PathTable struct {
	distRoot          string
	sourceRoot        string
	spriteFragmentDir string
	routes            map[Category]Route
}

// NewPathTable validates routes and returns a table holding exactly one route per category.
func NewPathTable(distRoot, sourceRoot, spriteFragmentDir string, routes []Route) (PathTable, error) {
	if distRoot == "" || sourceRoot == "" || spriteFragmentDir == "" {
		return PathTable{}, ErrInvalidPathTable
	}

	table := PathTable{
		distRoot:          filepath.Clean(distRoot),
		sourceRoot:        filepath.Clean(sourceRoot),
		spriteFragmentDir: filepath.Clean(spriteFragmentDir),
		routes:            make(map[Category]Route, len(routes)),
	}

	for _, r := range routes {
		if !r.Category.Valid() {
			return PathTable{}, zerr.With(ErrUnknownCategory, "category", r.Category.String())
		}
		if _, dup := table.routes[r.Category]; dup {
			return PathTable{}, zerr.With(ErrDuplicateRoute, "category", r.Category.String())
		}
		if r.Source == "" || r.Dest == "" || r.Pattern == "" {
			return PathTable{}, zerr.With(ErrInvalidPathTable, "category", r.Category.String())
		}
		r.Source = filepath.Clean(r.Source)
		r.Dest = filepath.Clean(r.Dest)
		if !within(table.sourceRoot, r.Source) {
			return PathTable{}, zerr.With(zerr.With(zerr.Wrap(ErrInvalidPathTable, "source outside source root"),
				"category", r.Category.String()), "source", r.Source)
		}
		if !within(table.distRoot, r.Dest) {
			return PathTable{}, zerr.With(zerr.With(zerr.Wrap(ErrInvalidPathTable, "destination outside destination root"),
				"category", r.Category.String()), "dest", r.Dest)
		}
		if len(r.Watch) == 0 {
			r.Watch = []string{r.Pattern}
		}
		table.routes[r.Category] = r.clone()
	}

	for _, c := range Categories {
		if _, ok := table.routes[c]; !ok {
			return PathTable{}, zerr.With(ErrMissingRoute, "category", c.String())
		}
	}

	return table, nil
}

// within reports whether p is root or lies below it. Both are clean relative paths.
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// DefaultPathTable returns the stock project layout.
func DefaultPathTable() PathTable {
	table, err := NewPathTable(DefaultDistRoot, DefaultSourceRoot, DefaultSpriteFragmentDir, DefaultRoutes())
	if err != nil {
		panic(err)
	}
	return table
}

// DefaultRoutes returns the stock route for every category.
func DefaultRoutes() []Route {
	return []Route{
		{Category: CategoryMarkup, Source: "src/html", Dest: "public", Pattern: "*.pug", Watch: []string{"**/*.pug"}},
		{Category: CategoryStyle, Source: "src/style", Dest: "public/style", Pattern: "**/*.scss", Watch: []string{"**/*.scss"}},
		{Category: CategoryAppScript, Source: "src/js", Dest: "public/js", Pattern: "*.js", Watch: []string{"**/*.js"}},
		{Category: CategoryExternalScript, Source: "src/js/external", Dest: "public/js/external", Pattern: "*.js", Watch: []string{"**/*.js"}},
		{Category: CategorySprite, Source: "src/img/css/sprite", Dest: "public/img/css", Pattern: "*.png", Watch: []string{"*.png"}},
		{Category: CategoryHTMLImage, Source: "src/img/html", Dest: "public/img/html", Pattern: "**", Watch: []string{"**"}},
		{Category: CategoryCSSImage, Source: "src/img/css", Dest: "public/img/css", Pattern: "*.*", Watch: []string{"*.*"}},
		{Category: CategoryFont, Source: "src/font", Dest: "public/font", Pattern: "**/*.*", Watch: []string{"**/*.*"}},
	}
}

// Route returns the route for c.
func (p PathTable) Route(c Category) (Route, bool) {
	r, ok := p.routes[c]
	if !ok {
		return Route{}, false
	}
	return r.clone(), true
}

// Routes returns every route in category declaration order.
func (p PathTable) Routes() []Route {
	out := make([]Route, 0, len(p.routes))
	for _, c := range Categories {
		if r, ok := p.routes[c]; ok {
			out = append(out, r.clone())
		}
	}
	return out
}

// DistRoot returns the project-relative destination root.
func (p PathTable) DistRoot() string {
	return p.distRoot
}

// SourceRoot returns the project-relative source root.
func (p PathTable) SourceRoot() string {
	return p.sourceRoot
}

// SpriteFragmentDir returns the directory that receives the sprite SCSS fragment.
func (p PathTable) SpriteFragmentDir() string {
	return p.spriteFragmentDir
}

// WatchRule maps a glob under a directory to the task it triggers.
type WatchRule struct {
	Task    string
	Dir     string
	Pattern string
}

// WatchRules derives the watch map from the routes.
func (p PathTable) WatchRules() []WatchRule {
	var rules []WatchRule
	for _, r := range p.Routes() {
		for _, pattern := range r.Watch {
			rules = append(rules, WatchRule{
				Task:    r.Category.WatchTask(),
				Dir:     r.Source,
				Pattern: pattern,
			})
		}
	}
	return rules
}
