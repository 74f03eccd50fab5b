package models

// TemplateStyle is derived from an uploaded template and discarded after one use.
type TemplateStyle struct {
	Colors       ThemeColors  `json:"colors"`
	Fonts        ThemeFonts   `json:"fonts"`
	Layouts      []LayoutInfo `json:"layouts"`
	Images       []string     `json:"images"`
	MasterSlides []MasterInfo `json:"masterSlides"`
	SlideSize    SlideSize    `json:"slideSize"`
}

// ThemeColors holds "#rrggbb" values.
type ThemeColors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent1    string `json:"accent1"`
	Accent2    string `json:"accent2"`
	Accent3    string `json:"accent3"`
	Accent4    string `json:"accent4"`
	Accent5    string `json:"accent5"`
	Accent6    string `json:"accent6"`
	Background string `json:"background"`
	Text       string `json:"text"`
	Scheme     string `json:"scheme"`
}

type ThemeFonts struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Heading     string `json:"heading"`
	TitleSize   int    `json:"titleSize"`
	BodySize    int    `json:"bodySize"`
	HeadingSize int    `json:"headingSize"`
}

// LayoutInfo describes one ppt/slideLayouts part.
type LayoutInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
}

// MasterInfo describes one ppt/slideMasters part.
type MasterInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	LayoutCount int    `json:"layoutCount"`
}

// SlideSize is in EMU.
type SlideSize struct {
	CX int64 `json:"cx"`
	CY int64 `json:"cy"`
}

const (
	EMUPerInch = 914400

	// 10in x 5.625in
	DefaultSlideCX = 9144000
	DefaultSlideCY = 5143500
)

func DefaultThemeColors() ThemeColors {
	return ThemeColors{
		Primary:    "#1f4e79",
		Secondary:  "#70ad47",
		Accent1:    "#4472c4",
		Accent2:    "#e7e6e6",
		Accent3:    "#a5a5a5",
		Accent4:    "#ffc000",
		Accent5:    "#5b9bd5",
		Accent6:    "#70ad47",
		Background: "#ffffff",
		Text:       "#000000",
		Scheme:     "default",
	}
}

func DefaultThemeFonts() ThemeFonts {
	return ThemeFonts{
		Title:       "Calibri",
		Body:        "Calibri",
		Heading:     "Calibri",
		TitleSize:   44,
		BodySize:    18,
		HeadingSize: 24,
	}
}

// DefaultTemplateStyle is used wholesale when a template cannot be read.
func DefaultTemplateStyle() *TemplateStyle {
	return &TemplateStyle{
		Colors:       DefaultThemeColors(),
		Fonts:        DefaultThemeFonts(),
		Layouts:      []LayoutInfo{},
		Images:       []string{},
		MasterSlides: []MasterInfo{},
		SlideSize:    SlideSize{CX: DefaultSlideCX, CY: DefaultSlideCY},
	}
}
