package domain

import (
	"path/filepath"
	"strings"
)

// Category identifies one kind of source asset and the transformation applied to it.
type Category string

const (
	// CategoryMarkup compiles Pug templates into HTML pages.
	CategoryMarkup Category = "markup"
	// CategoryStyle compiles SCSS sheets into CSS.
	CategoryStyle Category = "style"
	// CategoryAppScript bundles application entry points.
	CategoryAppScript Category = "app-script"
	// CategoryExternalScript copies third-party scripts verbatim.
	CategoryExternalScript Category = "external-script"
	// CategorySprite packs icons into a sprite sheet and a SCSS fragment.
	CategorySprite Category = "sprite"
	// CategoryHTMLImage copies images referenced from markup.
	CategoryHTMLImage Category = "html-image"
	// CategoryCSSImage copies images referenced from style sheets.
	CategoryCSSImage Category = "css-image"
	// CategoryFont copies web fonts.
	CategoryFont Category = "font"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategoryMarkup,
	CategoryStyle,
	CategoryAppScript,
	CategoryExternalScript,
	CategorySprite,
	CategoryHTMLImage,
	CategoryCSSImage,
	CategoryFont,
}

type categoryInfo struct {
	label       string
	task        string
	watchTask   string
	incremental bool
}

var categoryTable = map[Category]categoryInfo{
	CategoryMarkup:         {label: "PUG", task: TaskHTML, watchTask: TaskHTML},
	CategoryStyle:          {label: "SCSS", task: TaskCSS, watchTask: TaskCSS},
	CategoryAppScript:      {label: "JS", task: TaskJSApp, watchTask: TaskJS},
	CategoryExternalScript: {label: "JS", task: TaskJSExternal, watchTask: TaskJS, incremental: true},
	CategorySprite:         {label: "SPRITE", task: TaskSprite, watchTask: TaskSprite},
	CategoryHTMLImage:      {label: "IMG", task: TaskImgHTML, watchTask: TaskImg, incremental: true},
	CategoryCSSImage:       {label: "IMG", task: TaskImgCSS, watchTask: TaskImg, incremental: true},
	CategoryFont:           {label: "FONT", task: TaskFont, watchTask: TaskFont, incremental: true},
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryTable[c]
	return ok
}

// Label returns the short title used in failure notifications.
func (c Category) Label() string {
	return categoryTable[c].label
}

// TaskName returns the name of the task that builds this category.
func (c Category) TaskName() string {
	return categoryTable[c].task
}

// WatchTask returns the task triggered when a watched source of this category changes.
func (c Category) WatchTask() string {
	return categoryTable[c].watchTask
}

// Incremental reports whether sources are skipped when their output is already up to date.
func (c Category) Incremental() bool {
	return categoryTable[c].incremental
}

// IsPartial reports whether the source at rel is an import-only fragment that produces no output.
func (c Category) IsPartial(rel string) bool {
	return c == CategoryStyle && strings.HasPrefix(filepath.Base(rel), "_")
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}
