// Package sprite packs PNG icons into sprite sheets and emits the matching SCSS fragment.
package sprite

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// DefaultPadding is the gap in pixels between icons of the normal sheet.
	DefaultPadding = 3
	// NamePrefix is prepended to every icon name in the fragment.
	NamePrefix = "s-"
	// RetinaSuffix marks double-density icons.
	RetinaSuffix = "@2x"
)

var _ ports.Transformer = (*Packer)(nil)

// Icon is a packed image and its placement in a sheet.
type Icon struct {
	Name   string
	X, Y   int
	Width  int
	Height int
	img    image.Image
}

// Sheet is a set of icons packed top-down.
type Sheet struct {
	Width  int
	Height int
	Icons  []Icon
}

// Packer implements ports.Transformer for the sprite category.
type Packer struct {
	padding int
}

// New creates a Packer with the default padding.
func New() *Packer {
	return &Packer{padding: DefaultPadding}
}

// Transform packs every source into the normal or the retina sheet and renders the fragment.
// The fragment is always produced so style compilation never depends on icons being present.
func (p *Packer) Transform(ctx context.Context, job ports.Job) ([]ports.Output, error) {
	normal, retina, err := load(ctx, job.Sources)
	if err != nil {
		return nil, err
	}
	if err := pair(normal, retina); err != nil {
		return nil, err
	}

	styleRoute, _ := job.Paths.Route(domain.CategoryStyle)
	imgDir, err := filepath.Rel(styleRoute.Dest, job.Route.Dest)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to resolve sprite image path")
	}

	frag := Fragment{
		ImagePath:       filepath.ToSlash(filepath.Join(imgDir, domain.SpriteSheetName)),
		RetinaImagePath: filepath.ToSlash(filepath.Join(imgDir, domain.RetinaSpriteSheetName)),
		Normal:          Pack(normal, p.padding),
	}

	var outputs []ports.Output

	if len(normal) == 0 {
		if job.Log != nil {
			_, _ = fmt.Fprintln(job.Log, "no sprite icons found")
		}
	} else {
		data, err := encode(frag.Normal)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, ports.Output{
			Path: filepath.Join(job.Root, job.Route.Dest, domain.SpriteSheetName),
			Data: data,
		})
	}

	if len(retina) > 0 {
		sheet := Pack(retina, p.padding*2)
		frag.Retina = &sheet

		data, err := encode(sheet)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, ports.Output{
			Path: filepath.Join(job.Root, job.Route.Dest, domain.RetinaSpriteSheetName),
			Data: data,
		})
	}

	outputs = append(outputs, ports.Output{
		Path: filepath.Join(job.Root, job.Paths.SpriteFragmentDir(), domain.SpriteFragmentName),
		Data: []byte(frag.Render()),
	})

	return outputs, nil
}

// load decodes the sources and splits them by density. Sources arrive sorted,
// which fixes the packing order.
func load(ctx context.Context, sources []ports.Source) (normal, retina []Icon, err error) {
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		img, err := decode(src.Path)
		if err != nil {
			return nil, nil, zerr.With(err, "file", src.Rel)
		}

		base := strings.TrimSuffix(filepath.Base(src.Rel), filepath.Ext(src.Rel))
		icon := Icon{img: img, Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}

		if name, ok := strings.CutSuffix(base, RetinaSuffix); ok {
			icon.Name = NamePrefix + name
			retina = append(retina, icon)
			continue
		}
		icon.Name = NamePrefix + base
		normal = append(normal, icon)
	}
	return normal, retina, nil
}

func decode(path string) (image.Image, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the source resolver
	if err != nil {
		return nil, zerr.Wrap(err, "failed to open sprite icon")
	}
	defer f.Close() //nolint:errcheck // read-only

	img, err := png.Decode(f)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to decode sprite icon")
	}
	return img, nil
}

// pair checks that retina icons, when present, map one-to-one onto normal icons
// and reorders them to match.
func pair(normal, retina []Icon) error {
	if len(retina) == 0 {
		return nil
	}

	byName := make(map[string]Icon, len(retina))
	for _, r := range retina {
		byName[r.Name] = r
	}

	ordered := make([]Icon, 0, len(normal))
	for _, n := range normal {
		r, ok := byName[n.Name]
		if !ok {
			return zerr.With(domain.ErrSpriteRetinaMismatch, "sprite", n.Name)
		}
		ordered = append(ordered, r)
		delete(byName, n.Name)
	}
	if len(byName) > 0 {
		orphan := slices.Sorted(maps.Keys(byName))[0]
		return zerr.With(domain.ErrSpriteRetinaMismatch, "sprite", orphan+RetinaSuffix)
	}

	copy(retina, ordered)
	return nil
}

// Pack places icons top-down, left aligned, separated by padding pixels.
func Pack(icons []Icon, padding int) Sheet {
	sheet := Sheet{Icons: make([]Icon, len(icons))}
	y := 0
	for i, icon := range icons {
		if i > 0 {
			y += padding
		}
		icon.X, icon.Y = 0, y
		sheet.Icons[i] = icon
		y += icon.Height
		sheet.Width = max(sheet.Width, icon.Width)
	}
	sheet.Height = y
	return sheet
}

func encode(sheet Sheet) ([]byte, error) {
	canvas := image.NewNRGBA(image.Rect(0, 0, sheet.Width, sheet.Height))
	for _, icon := range sheet.Icons {
		if icon.img == nil {
			continue
		}
		dst := image.Rect(icon.X, icon.Y, icon.X+icon.Width, icon.Y+icon.Height)
		draw.Draw(canvas, dst, icon.img, icon.img.Bounds().Min, draw.Src)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, zerr.Wrap(err, "failed to encode sprite sheet")
	}
	return buf.Bytes(), nil
}
