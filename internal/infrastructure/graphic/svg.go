package graphic

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"math"
	"regexp"

	"target-onchain-shopify-app/internal/domain"
)

// Defaults applied to zero-valued options
const (
	DefaultWidth           = 200
	DefaultHeight          = 200
	DefaultBackgroundColor = "#FFFFFF"
	DefaultTextColor       = "#000000"
	DefaultFontSize        = 30
)

// Options controls how text is rendered. Zero values take the defaults.
type Options struct {
	Width           float64
	Height          float64
	BackgroundColor string
	TextColor       string
	FontSize        float64
}

var colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3}|#[0-9a-fA-F]{6}|#[0-9a-fA-F]{8}|[a-zA-Z]{3,20})$`)

func (o Options) withDefaults() Options {
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.BackgroundColor == "" {
		o.BackgroundColor = DefaultBackgroundColor
	}
	if o.TextColor == "" {
		o.TextColor = DefaultTextColor
	}
	if o.FontSize == 0 {
		o.FontSize = DefaultFontSize
	}
	return o
}

func (o Options) validate() error {
	for _, dim := range []struct {
		name  string
		value float64
	}{
		{"width", o.Width},
		{"height", o.Height},
		{"fontSize", o.FontSize},
	} {
		if math.IsNaN(dim.value) || math.IsInf(dim.value, 0) {
			return &domain.InvalidOptionsError{Option: dim.name, Reason: "must be a finite number"}
		}
		if dim.value <= 0 {
			return &domain.InvalidOptionsError{Option: dim.name, Reason: "must be positive"}
		}
	}
	if !colorPattern.MatchString(o.BackgroundColor) {
		return &domain.InvalidOptionsError{Option: "backgroundColor", Reason: fmt.Sprintf("%q is not a colour", o.BackgroundColor)}
	}
	if !colorPattern.MatchString(o.TextColor) {
		return &domain.InvalidOptionsError{Option: "textColor", Reason: fmt.Sprintf("%q is not a colour", o.TextColor)}
	}
	return nil
}

// RenderSVG draws text centred on a solid background
func RenderSVG(text string, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return nil, fmt.Errorf("failed to escape text: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf,
		`<svg width="%[1]s" height="%[2]s" viewBox="0 0 %[1]s %[2]s" xmlns="http://www.w3.org/2000/svg">`,
		num(opts.Width), num(opts.Height))
	fmt.Fprintf(&buf, `<rect width="100%%" height="100%%" fill="%s"></rect>`, opts.BackgroundColor)
	fmt.Fprintf(&buf,
		`<text x="50%%" y="50%%" dominant-baseline="middle" text-anchor="middle" fill="%s" font-size="%s" font-family="Arial">%s</text>`,
		opts.TextColor, num(opts.FontSize), escaped.String())
	buf.WriteString(`</svg>`)
	return buf.Bytes(), nil
}

// TextToDataURL renders text and returns a self-contained base64 SVG data URI
func TextToDataURL(text string, opts Options) (string, error) {
	svg, err := RenderSVG(text, opts)
	if err != nil {
		return "", err
	}
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg), nil
}

func num(v float64) string {
	return fmt.Sprintf("%g", v)
}
