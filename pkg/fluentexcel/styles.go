package fluentexcel

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// CellStyle defines styling for header and data cells
type CellStyle struct {
	FontName   string
	FontSize   float64
	FontBold   bool
	FontItalic bool
	FontColor  string

	FillColor string

	Alignment     string // "left", "center", "right"
	VerticalAlign string // "top", "center", "bottom"

	NumberFormat string

	WrapText bool
}

// StyleBuilder provides a fluent API for building cell styles
type StyleBuilder struct {
	style *CellStyle
}

// NewStyleBuilder creates a new style builder with default values
func NewStyleBuilder() *StyleBuilder {
	return &StyleBuilder{style: &CellStyle{}}
}

// Font sets the font properties
func (b *StyleBuilder) Font(name string, size float64) *StyleBuilder {
	b.style.FontName = name
	b.style.FontSize = size
	return b
}

// Bold sets the font to bold
func (b *StyleBuilder) Bold() *StyleBuilder {
	b.style.FontBold = true
	return b
}

// Italic sets the font to italic
func (b *StyleBuilder) Italic() *StyleBuilder {
	b.style.FontItalic = true
	return b
}

// FontColor sets the font color (hex format)
func (b *StyleBuilder) FontColor(color string) *StyleBuilder {
	b.style.FontColor = color
	return b
}

// Fill sets the cell background color
func (b *StyleBuilder) Fill(color string) *StyleBuilder {
	b.style.FillColor = color
	return b
}

// Align sets the horizontal alignment
func (b *StyleBuilder) Align(alignment string) *StyleBuilder {
	b.style.Alignment = alignment
	return b
}

// VAlign sets the vertical alignment
func (b *StyleBuilder) VAlign(alignment string) *StyleBuilder {
	b.style.VerticalAlign = alignment
	return b
}

// NumberFormat sets the number format
func (b *StyleBuilder) NumberFormat(format string) *StyleBuilder {
	b.style.NumberFormat = format
	return b
}

// WrapText enables text wrapping
func (b *StyleBuilder) WrapText() *StyleBuilder {
	b.style.WrapText = true
	return b
}

// Build returns the built style
func (b *StyleBuilder) Build() *CellStyle {
	return b.style
}

// DefaultHeaderStyle returns the style of the title row
func DefaultHeaderStyle() *CellStyle {
	return NewStyleBuilder().
		Bold().
		Fill("#D9D9D9").
		Align("center").
		VAlign("center").
		Build()
}

func (s *CellStyle) toExcelize() *excelize.Style {
	out := &excelize.Style{}
	if s.FontName != "" || s.FontSize > 0 || s.FontBold || s.FontItalic || s.FontColor != "" {
		out.Font = &excelize.Font{
			Bold:   s.FontBold,
			Italic: s.FontItalic,
			Size:   s.FontSize,
			Family: s.FontName,
			Color:  strings.TrimPrefix(s.FontColor, "#"),
		}
	}
	if s.Alignment != "" || s.VerticalAlign != "" || s.WrapText {
		out.Alignment = &excelize.Alignment{
			Horizontal: s.Alignment,
			Vertical:   s.VerticalAlign,
			WrapText:   s.WrapText,
		}
	}
	if s.FillColor != "" {
		out.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{strings.TrimPrefix(s.FillColor, "#")},
		}
	}
	if s.NumberFormat != "" {
		format := s.NumberFormat
		out.CustomNumFmt = &format
	}
	return out
}

// styleCache creates each style once per export. Format styles are keyed by
// column, merge anchor styles by the style they extend.
type styleCache struct {
	f        *excelize.File
	log      zerolog.Logger
	newStyle func(*excelize.Style) (int, error)

	headerDef *CellStyle
	header    int
	formats map[int]int
	anchors map[int]int
}

// newStyleCache uses header for the title row, or DefaultHeaderStyle when nil.
func newStyleCache(f *excelize.File, log zerolog.Logger, header *CellStyle) *styleCache {
	if header == nil {
		header = DefaultHeaderStyle()
	}
	return &styleCache{
		f:         f,
		log:       log,
		newStyle:  f.NewStyle,
		headerDef: header,
		header:    -1,
		formats:   make(map[int]int),
		anchors:   make(map[int]int),
	}
}

func (c *styleCache) headerStyle() (int, error) {
	if c.header >= 0 {
		return c.header, nil
	}
	id, err := c.newStyle(c.headerDef.toExcelize())
	if err != nil {
		return 0, err
	}
	c.header = id
	return id, nil
}

// formatStyle returns the number format style of a column. A format the
// engine rejects yields 0 and the column is written unformatted.
func (c *styleCache) formatStyle(col int, format string) int {
	if format == "" {
		return 0
	}
	if id, ok := c.formats[col]; ok {
		return id
	}
	id, err := c.newStyle(NewStyleBuilder().NumberFormat(format).Build().toExcelize())
	if err != nil {
		c.log.Debug().Err(err).Int("column", col).Str("format", format).Msg("ignoring invalid number format")
		id = 0
	}
	c.formats[col] = id
	return id
}

// anchorStyle extends base with vertical centering, keeping its number format.
func (c *styleCache) anchorStyle(base int) (int, error) {
	if id, ok := c.anchors[base]; ok {
		return id, nil
	}
	style := &excelize.Style{}
	if base != 0 {
		existing, err := c.f.GetStyle(base)
		if err != nil {
			return 0, err
		}
		style = existing
	}
	if style.Alignment == nil {
		style.Alignment = &excelize.Alignment{}
	}
	style.Alignment.Vertical = "center"
	id, err := c.newStyle(style)
	if err != nil {
		return 0, err
	}
	c.anchors[base] = id
	return id, nil
}
