package services

import (
	"archive/zip"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

func TestExtractStyle_ReadsThemeLayoutsAndMasters(t *testing.T) {
	path := buildPackage(t, "brand.pptx", map[string]string{
		themePart:              customTheme,
		"ppt/media/image1.png": "\x89PNG",
		"ppt/media/logo.JPEG":  "jpeg",
	})

	style := NewTemplateService(nil).ExtractStyle(path)

	colors := style.Colors
	if colors.Primary != "#112233" || colors.Text != "#112233" {
		t.Errorf("Expected dk1 from sysClr lastClr, got primary=%q text=%q", colors.Primary, colors.Text)
	}
	if colors.Background != "#FAFAFA" || colors.Accent1 != "#AA0000" || colors.Secondary != "#00AA00" || colors.Accent6 != "#AA00AA" {
		t.Errorf("Unexpected colors: %+v", colors)
	}
	if colors.Scheme != "Brand Colors" {
		t.Errorf("Expected scheme name, got %q", colors.Scheme)
	}
	if style.Fonts.Title != "Georgia" || style.Fonts.Heading != "Georgia" || style.Fonts.Body != "Verdana" {
		t.Errorf("Unexpected fonts: %+v", style.Fonts)
	}

	if len(style.Layouts) != 2 || style.Layouts[0].Type != "title" || style.Layouts[1].DisplayName != "Blank" {
		t.Errorf("Unexpected layouts: %+v", style.Layouts)
	}
	if len(style.MasterSlides) != 1 || style.MasterSlides[0].LayoutCount != 2 {
		t.Errorf("Unexpected masters: %+v", style.MasterSlides)
	}
	if style.SlideSize != (models.SlideSize{CX: 9144000, CY: 5143500}) {
		t.Errorf("Unexpected slide size: %+v", style.SlideSize)
	}
	if len(style.Images) != 2 || style.Images[0] != "ppt/media/image1.png" {
		t.Errorf("Unexpected images: %v", style.Images)
	}
}

func TestExtractStyle_MissingThemeUsesDefaults(t *testing.T) {
	path := buildPackage(t, "no-theme.potx", map[string]string{themePart: ""})

	style := NewTemplateService(nil).ExtractStyle(path)
	if style.Colors != models.DefaultThemeColors() {
		t.Errorf("Expected default colors, got %+v", style.Colors)
	}
	if style.Fonts != models.DefaultThemeFonts() {
		t.Errorf("Expected default fonts, got %+v", style.Fonts)
	}
	if len(style.Layouts) != 2 {
		t.Errorf("Expected layouts to still be read, got %d", len(style.Layouts))
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer zr.Close()
	if _, usedDefaults := extractStyle(&zr.Reader); !usedDefaults {
		t.Error("Expected usedDefaults for a package without a theme")
	}
}

func TestExtractStyle_BrokenThemeUsesDefaults(t *testing.T) {
	path := buildPackage(t, "broken.pptx", map[string]string{themePart: "<a:theme><unclosed"})

	style := NewTemplateService(nil).ExtractStyle(path)
	if style.Colors != models.DefaultThemeColors() {
		t.Errorf("Expected default colors, got %+v", style.Colors)
	}
}

func TestExtractStyle_UnreadableFile(t *testing.T) {
	style := NewTemplateService(nil).ExtractStyle(filepath.Join(t.TempDir(), "missing.pptx"))
	if style == nil || style.Colors != models.DefaultThemeColors() || style.SlideSize.CX != models.DefaultSlideCX {
		t.Errorf("Expected default style, got %+v", style)
	}
}

func TestExtractStyle_PartialColorScheme(t *testing.T) {
	theme := strings.Replace(customTheme, `<a:accent3><a:srgbClr val="0000AA"/></a:accent3>`, `<a:accent3/>`, 1)
	path := buildPackage(t, "partial.pptx", map[string]string{themePart: theme})

	style := NewTemplateService(nil).ExtractStyle(path)
	if style.Colors.Accent3 != models.DefaultThemeColors().Primary {
		t.Errorf("Expected missing accent to fall back to the default primary, got %q", style.Colors.Accent3)
	}
}

func TestPartIndex(t *testing.T) {
	got := partIndex("ppt/slideLayouts/slideLayout12.xml")
	if got != 12 {
		t.Errorf("partIndex = %d, want 12", got)
	}
	if partIndex("ppt/presentation.xml") != 0 {
		t.Error("Expected 0 for unnumbered part")
	}
}
