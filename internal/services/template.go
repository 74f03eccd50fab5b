package services

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/metrics"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

const (
	themePart        = "ppt/theme/theme1.xml"
	presentationPart = "ppt/presentation.xml"
	layoutPrefix     = "ppt/slideLayouts/slideLayout"
	masterPrefix     = "ppt/slideMasters/slideMaster"
)

var (
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".svg"}
	partIndexRe     = regexp.MustCompile(`(\d+)\.xml$`)
)

type themeXML struct {
	Elements struct {
		ColorScheme struct {
			Name    string      `xml:"name,attr"`
			Dk1     schemeColor `xml:"dk1"`
			Lt1     schemeColor `xml:"lt1"`
			Dk2     schemeColor `xml:"dk2"`
			Lt2     schemeColor `xml:"lt2"`
			Accent1 schemeColor `xml:"accent1"`
			Accent2 schemeColor `xml:"accent2"`
			Accent3 schemeColor `xml:"accent3"`
			Accent4 schemeColor `xml:"accent4"`
			Accent5 schemeColor `xml:"accent5"`
			Accent6 schemeColor `xml:"accent6"`
		} `xml:"clrScheme"`
		FontScheme struct {
			Major themeFont `xml:"majorFont"`
			Minor themeFont `xml:"minorFont"`
		} `xml:"fontScheme"`
	} `xml:"themeElements"`
}

type schemeColor struct {
	SRGB *struct {
		Val string `xml:"val,attr"`
	} `xml:"srgbClr"`
	Sys *struct {
		Val     string `xml:"val,attr"`
		LastClr string `xml:"lastClr,attr"`
	} `xml:"sysClr"`
}

type themeFont struct {
	Latin struct {
		Typeface string `xml:"typeface,attr"`
	} `xml:"latin"`
}

type layoutXML struct {
	Type string `xml:"type,attr"`
	CSld struct {
		Name string `xml:"name,attr"`
	} `xml:"cSld"`
}

type masterXML struct {
	CSld struct {
		Name string `xml:"name,attr"`
	} `xml:"cSld"`
	LayoutIDs struct {
		IDs []struct {
			ID string `xml:"id,attr"`
		} `xml:"sldLayoutId"`
	} `xml:"sldLayoutIdLst"`
}

type presentationSizeXML struct {
	SlideSize struct {
		CX int64 `xml:"cx,attr"`
		CY int64 `xml:"cy,attr"`
	} `xml:"sldSz"`
}

// TemplateService reads theme, layout and master information out of a
// .pptx/.potx package.
type TemplateService struct {
	metrics *metrics.Recorder
}

func NewTemplateService(recorder *metrics.Recorder) *TemplateService {
	return &TemplateService{metrics: recorder}
}

// ExtractStyle never fails: unreadable packages yield the default style and
// a missing or broken theme yields default colors and fonts.
func (s *TemplateService) ExtractStyle(templatePath string) *models.TemplateStyle {
	r, err := zip.OpenReader(templatePath)
	if err != nil {
		log.Printf("WARNING: could not open template %s, using default style: %v", path.Base(templatePath), err)
		s.metrics.ObserveTemplate(true)
		return models.DefaultTemplateStyle()
	}
	defer r.Close()

	style, usedDefaults := extractStyle(&r.Reader)
	s.metrics.ObserveTemplate(usedDefaults)
	return style
}

func extractStyle(zr *zip.Reader) (*models.TemplateStyle, bool) {
	style := models.DefaultTemplateStyle()
	files := indexZip(zr)

	usedDefaults := true
	if f, ok := files[themePart]; ok {
		var theme themeXML
		if err := decodeZipXML(f, &theme); err != nil {
			log.Printf("WARNING: could not parse template theme, using default colors and fonts: %v", err)
		} else {
			style.Colors = themeColors(&theme)
			style.Fonts = themeFonts(&theme)
			usedDefaults = false
		}
	} else {
		log.Println("WARNING: template has no theme part, using default colors and fonts")
	}

	if f, ok := files[presentationPart]; ok {
		var pres presentationSizeXML
		if err := decodeZipXML(f, &pres); err == nil && pres.SlideSize.CX > 0 && pres.SlideSize.CY > 0 {
			style.SlideSize = models.SlideSize{CX: pres.SlideSize.CX, CY: pres.SlideSize.CY}
		}
	}

	for _, name := range sortedParts(files, layoutPrefix) {
		var layout layoutXML
		if err := decodeZipXML(files[name], &layout); err != nil {
			log.Printf("WARNING: could not parse layout %s: %v", name, err)
			continue
		}
		style.Layouts = append(style.Layouts, models.LayoutInfo{
			Name:        name,
			DisplayName: layout.CSld.Name,
			Type:        layout.Type,
		})
	}

	for _, name := range sortedParts(files, masterPrefix) {
		var master masterXML
		if err := decodeZipXML(files[name], &master); err != nil {
			log.Printf("WARNING: could not parse master slide %s: %v", name, err)
			continue
		}
		style.MasterSlides = append(style.MasterSlides, models.MasterInfo{
			Name:        name,
			DisplayName: master.CSld.Name,
			LayoutCount: len(master.LayoutIDs.IDs),
		})
	}

	for _, f := range zr.File {
		if isImage(f.Name) {
			style.Images = append(style.Images, f.Name)
		}
	}
	sort.Strings(style.Images)

	return style, usedDefaults
}

func themeColors(theme *themeXML) models.ThemeColors {
	colors := models.DefaultThemeColors()
	scheme := theme.Elements.ColorScheme
	fallback := colors.Primary

	resolve := func(c schemeColor) string {
		if c.SRGB != nil && c.SRGB.Val != "" {
			return "#" + c.SRGB.Val
		}
		if c.Sys != nil && c.Sys.LastClr != "" {
			return "#" + c.Sys.LastClr
		}
		return fallback
	}

	colors.Primary = resolve(scheme.Dk1)
	colors.Secondary = resolve(scheme.Accent2)
	colors.Accent1 = resolve(scheme.Accent1)
	colors.Accent2 = resolve(scheme.Accent2)
	colors.Accent3 = resolve(scheme.Accent3)
	colors.Accent4 = resolve(scheme.Accent4)
	colors.Accent5 = resolve(scheme.Accent5)
	colors.Accent6 = resolve(scheme.Accent6)
	colors.Background = resolve(scheme.Lt1)
	colors.Text = resolve(scheme.Dk1)
	if scheme.Name != "" {
		colors.Scheme = scheme.Name
	}
	return colors
}

func themeFonts(theme *themeXML) models.ThemeFonts {
	fonts := models.DefaultThemeFonts()
	if major := theme.Elements.FontScheme.Major.Latin.Typeface; major != "" {
		fonts.Title = major
		fonts.Heading = major
	}
	if minor := theme.Elements.FontScheme.Minor.Latin.Typeface; minor != "" {
		fonts.Body = minor
	}
	return fonts
}

func indexZip(zr *zip.Reader) map[string]*zip.File {
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	return files
}

// sortedParts returns prefixNN.xml entries ordered by NN.
func sortedParts(files map[string]*zip.File, prefix string) []string {
	var names []string
	for name := range files {
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".xml") && !strings.Contains(name, "/_rels/") {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := partIndex(names[i]), partIndex(names[j])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
	return names
}

func partIndex(name string) int {
	m := partIndexRe.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func isImage(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func decodeZipXML(f *zip.File, v interface{}) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return decodeXML(rc, v)
}

func decodeXML(r io.Reader, v interface{}) error {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("decode xml: %w", err)
	}
	return nil
}
