package sprite

import (
	"fmt"
	"strings"
)

// Fragment renders the SCSS variables and mixins describing packed sheets.
type Fragment struct {
	ImagePath       string
	RetinaImagePath string
	Normal          Sheet
	// Retina is nil when no double-density icons exist.
	Retina *Sheet
}

const mixins = `@mixin sprite-width($sprite) {
  width: nth($sprite, 5);
}

@mixin sprite-height($sprite) {
  height: nth($sprite, 6);
}

@mixin sprite-position($sprite) {
  $sprite-offset-x: nth($sprite, 3);
  $sprite-offset-y: nth($sprite, 4);
  background-position: $sprite-offset-x  $sprite-offset-y;
}

@mixin sprite-image($sprite) {
  $sprite-image: nth($sprite, 9);
  background-image: url(#{$sprite-image});
}

@mixin sprite($sprite) {
  @include sprite-image($sprite);
  @include sprite-position($sprite);
  @include sprite-width($sprite);
  @include sprite-height($sprite);
}

@mixin sprites($sprites) {
  @each $sprite in $sprites {
    $sprite-name: nth($sprite, 10);
    .#{$sprite-name} {
      @include sprite($sprite);
    }
  }
}
`

const retinaMixins = `
@mixin sprite-background-size($sprite) {
  $sprite-total-width: nth($sprite, 7);
  $sprite-total-height: nth($sprite, 8);
  background-size: $sprite-total-width $sprite-total-height;
}

@mixin retina-sprite($retina-group) {
  $normal-sprite: nth($retina-group, 2);
  $retina-sprite: nth($retina-group, 3);
  @include sprite($normal-sprite);

  @media (-webkit-min-device-pixel-ratio: 2),
         (min-resolution: 192dpi) {
    @include sprite-image($retina-sprite);
    @include sprite-background-size($normal-sprite);
  }
}

@mixin retina-sprites($retina-groups) {
  @each $retina-group in $retina-groups {
    $sprite-name: nth($retina-group, 1);
    .#{$sprite-name} {
      @include retina-sprite($retina-group);
    }
  }
}
`

// Render returns the fragment source.
func (f Fragment) Render() string {
	var b strings.Builder

	writeSheet(&b, "spritesheet", "", f.Normal, f.ImagePath)

	if f.Retina != nil {
		writeSheet(&b, "retina-spritesheet", "-2x", *f.Retina, f.RetinaImagePath)

		groups := make([]string, len(f.Normal.Icons))
		for i, icon := range f.Normal.Icons {
			fmt.Fprintf(&b, "$%s-group-name: '%s';\n", icon.Name, icon.Name)
			fmt.Fprintf(&b, "$%s-group: ('%s', $%s, $%s-2x, );\n", icon.Name, icon.Name, icon.Name, icon.Name)
			groups[i] = "$" + icon.Name + "-group"
		}
		fmt.Fprintf(&b, "$retina-groups: (%s);\n\n", list(groups))
	}

	b.WriteString(mixins)
	if f.Retina != nil {
		b.WriteString(retinaMixins)
	}
	return b.String()
}

func writeSheet(b *strings.Builder, sheetName, suffix string, sheet Sheet, image string) {
	tw, th := px(sheet.Width), px(sheet.Height)
	vars := make([]string, len(sheet.Icons))

	for i, icon := range sheet.Icons {
		v := icon.Name + suffix
		x, y := px(icon.X), px(icon.Y)
		ox, oy := px(-icon.X), px(-icon.Y)
		w, h := px(icon.Width), px(icon.Height)

		fmt.Fprintf(b, "$%s-name: '%s';\n", v, v)
		fmt.Fprintf(b, "$%s-x: %s;\n", v, x)
		fmt.Fprintf(b, "$%s-y: %s;\n", v, y)
		fmt.Fprintf(b, "$%s-offset-x: %s;\n", v, ox)
		fmt.Fprintf(b, "$%s-offset-y: %s;\n", v, oy)
		fmt.Fprintf(b, "$%s-width: %s;\n", v, w)
		fmt.Fprintf(b, "$%s-height: %s;\n", v, h)
		fmt.Fprintf(b, "$%s-total-width: %s;\n", v, tw)
		fmt.Fprintf(b, "$%s-total-height: %s;\n", v, th)
		fmt.Fprintf(b, "$%s-image: '%s';\n", v, image)
		fmt.Fprintf(b, "$%s: (%s, %s, %s, %s, %s, %s, %s, %s, '%s', '%s', );\n",
			v, x, y, ox, oy, w, h, tw, th, image, v)

		vars[i] = "$" + v
	}

	fmt.Fprintf(b, "$%s-width: %s;\n", sheetName, tw)
	fmt.Fprintf(b, "$%s-height: %s;\n", sheetName, th)
	fmt.Fprintf(b, "$%s-image: '%s';\n", sheetName, image)
	fmt.Fprintf(b, "$%s-sprites: (%s);\n", sheetName, list(vars))
	fmt.Fprintf(b, "$%s: (%s, %s, '%s', $%s-sprites, );\n\n", sheetName, tw, th, image, sheetName)
}

func px(n int) string {
	if n == 0 {
		return "0px"
	}
	return fmt.Sprintf("%dpx", n)
}

func list(items []string) string {
	return strings.Join(items, ", ")
}
