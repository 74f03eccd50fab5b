package services

import (
	"archive/zip"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

//go:embed all:assets/base
var baseAssets embed.FS

// Reference canvas, in inches, that text box positions are laid out on.
const (
	canvasWidthIn  = 10.0
	canvasHeightIn = 5.625
)

// PresentationService assembles a deck on top of a template's masters,
// layouts and theme.
type PresentationService struct {
	now func() time.Time
}

func NewPresentationService() *PresentationService {
	return &PresentationService{now: time.Now}
}

// Generate writes the deck for structure to outputPath. The template's slide
// masters, layouts, themes and media are reused; when the template cannot
// serve as a base a built-in blank package is used instead.
func (s *PresentationService) Generate(structure *models.PresentationStructure, style *models.TemplateStyle, templatePath, outputPath string) error {
	if structure == nil {
		return fmt.Errorf("presentation structure is required")
	}
	if style == nil {
		style = models.DefaultTemplateStyle()
	}

	var (
		pkg *basePackage
		err error
	)
	if zr, openErr := zip.OpenReader(templatePath); openErr == nil {
		defer zr.Close()
		pkg, err = loadBasePackage(&zr.Reader)
		if err != nil {
			log.Printf("WARNING: template %s cannot be used as a base package, using built-in master: %v", filepath.Base(templatePath), err)
		}
	} else {
		log.Printf("WARNING: could not open template %s, using built-in master: %v", filepath.Base(templatePath), openErr)
	}
	if pkg == nil {
		pkg, err = loadBuiltinPackage()
		if err != nil {
			return fmt.Errorf("failed to load built-in master: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := s.assemble(&buf, pkg, structure, style); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp := outputPath + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write presentation: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write presentation: %w", err)
	}

	log.Printf("Presentation saved to: %s (%d slides)", filepath.Base(outputPath), len(structure.Slides)+1)
	return nil
}

func loadBuiltinPackage() (*basePackage, error) {
	sub, err := fs.Sub(baseAssets, "assets/base")
	if err != nil {
		return nil, err
	}
	return loadBasePackage(sub)
}

func (s *PresentationService) assemble(buf *bytes.Buffer, pkg *basePackage, structure *models.PresentationStructure, style *models.TemplateStyle) error {
	w := newPackageWriter(buf)
	for ext, ct := range pkg.defaults {
		w.defaults[ext] = ct
	}

	for _, name := range pkg.parts {
		if !copiedFromBase(name) {
			continue
		}
		ct, ok := pkg.contentType(name)
		if !ok && !strings.Contains(name, "/_rels/") {
			log.Printf("WARNING: skipping template part %s with unknown content type", name)
			continue
		}
		if err := w.copyPart(pkg.fsys, name, ct); err != nil {
			_ = w.zw.Close()
			return err
		}
	}

	deck := newDeckLayout(pkg, style)
	notesNeeded := false
	for _, slide := range structure.Slides {
		if strings.TrimSpace(slide.SpeakerNotes) != "" {
			notesNeeded = true
			break
		}
	}

	notesMaster := pkg.notesMaster
	if notesNeeded && notesMaster == "" {
		var err error
		notesMaster, err = writeNotesMaster(w, pkg)
		if err != nil {
			_ = w.zw.Close()
			return err
		}
	}

	presRels := newRelBuilder(presentationPart)
	masters := make([]masterEntry, 0, len(pkg.masters))
	for _, m := range pkg.masters {
		masters = append(masters, masterEntry{ID: m.ID, RID: presRels.add(relSlideMaster, m.Part)})
	}
	var notesMasterRID string
	if notesMaster != "" {
		notesMasterRID = presRels.add(relNotesMaster, notesMaster)
	}
	theme := pkg.theme
	if theme == "" {
		theme = themePart
	}
	presRels.add(relTheme, theme)
	for _, part := range []string{pkg.presProps, pkg.viewProps, pkg.tableStyles} {
		if part == "" {
			continue
		}
		switch {
		case strings.HasSuffix(part, "presProps.xml"):
			presRels.add(relPresProps, part)
		case strings.HasSuffix(part, "viewProps.xml"):
			presRels.add(relViewProps, part)
		default:
			presRels.add(relTableStyles, part)
		}
	}

	titleLayout := pkg.layoutOfType("title")
	contentLayout := pkg.layoutOfType("blank", "titleOnly", "obj")

	slides := make([]string, 0, len(structure.Slides)+1)
	titles := make([]string, 0, len(structure.Slides)+1)
	notesCount := 0

	addSlide := func(body, layout, title, notes string) error {
		n := len(slides) + 1
		slidePart := fmt.Sprintf("ppt/slides/slide%d.xml", n)
		slideRels := newRelBuilder(slidePart)
		slideRels.add(relSlideLayout, layout)

		if strings.TrimSpace(notes) != "" {
			notesPart := fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", n)
			slideRels.add(relNotesSlide, notesPart)

			notesRels := newRelBuilder(notesPart)
			notesRels.add(relNotesMaster, notesMaster)
			notesRels.add(relSlide, slidePart)
			if err := w.writeString(notesPart, ctNotesSlide, notesSlideXML(strings.TrimSpace(notes))); err != nil {
				return err
			}
			if err := w.writeString(relsPartFor(notesPart), "", notesRels.String()); err != nil {
				return err
			}
			notesCount++
		}

		if err := w.writeString(slidePart, ctSlide, body); err != nil {
			return err
		}
		if err := w.writeString(relsPartFor(slidePart), "", slideRels.String()); err != nil {
			return err
		}
		slides = append(slides, presRels.add(relSlide, slidePart))
		titles = append(titles, title)
		return nil
	}

	if err := addSlide(deck.titleSlideXML(structure.Title), titleLayout, structure.Title, ""); err != nil {
		_ = w.zw.Close()
		return err
	}
	for _, slide := range structure.Slides {
		if err := addSlide(deck.contentSlideXML(slide), contentLayout, slide.Title, slide.SpeakerNotes); err != nil {
			_ = w.zw.Close()
			return err
		}
	}

	parts := []struct {
		name, contentType, content string
	}{
		{presentationPart, ctPresentationMain, presentationXML(pkg, masters, notesMasterRID, slides)},
		{"ppt/_rels/presentation.xml.rels", "", presRels.String()},
		{"_rels/.rels", "", rootRelsXML()},
		{"docProps/core.xml", ctCoreProps, corePropsXML(structure.Title, s.now())},
		{"docProps/app.xml", ctExtendedProps, appPropsXML(titles, notesCount)},
	}
	for _, p := range parts {
		if err := w.writeString(p.name, p.contentType, p.content); err != nil {
			_ = w.zw.Close()
			return err
		}
	}

	return w.close()
}

// writeNotesMaster adds a notes master with its own theme copy for decks
// whose template has none.
func writeNotesMaster(w *packageWriter, pkg *basePackage) (string, error) {
	part := pkg.freePart("ppt/notesMasters/notesMaster%d.xml")

	theme, err := fs.ReadFile(baseAssets, "assets/base/"+themePart)
	if err != nil {
		return "", fmt.Errorf("read built-in theme: %w", err)
	}
	themeName := pkg.freePart("ppt/theme/theme%d.xml")
	if err := w.writeBytes(themeName, ctTheme, theme); err != nil {
		return "", err
	}

	rels := newRelBuilder(part)
	rels.add(relTheme, themeName)
	if err := w.writeString(part, ctNotesMaster, notesMasterXML(pkg.notesCX, pkg.notesCY)); err != nil {
		return "", err
	}
	if err := w.writeString(relsPartFor(part), "", rels.String()); err != nil {
		return "", err
	}
	return part, nil
}

// masterEntry is a sldMasterIdLst entry of the new deck.
type masterEntry struct {
	ID  string
	RID string
}

func presentationXML(pkg *basePackage, masters []masterEntry, notesMasterRID string, slideRIDs []string) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<p:presentation ` + nsPresentations + ` saveSubsetFonts="1">`)

	b.WriteString(`<p:sldMasterIdLst>`)
	for i, m := range masters {
		id := m.ID
		if id == "" {
			id = fmt.Sprintf("%d", 2147483648+i)
		}
		fmt.Fprintf(&b, `<p:sldMasterId id="%s" r:id="%s"/>`, esc(id), m.RID)
	}
	b.WriteString(`</p:sldMasterIdLst>`)

	if notesMasterRID != "" {
		fmt.Fprintf(&b, `<p:notesMasterIdLst><p:notesMasterId r:id="%s"/></p:notesMasterIdLst>`, notesMasterRID)
	}

	b.WriteString(`<p:sldIdLst>`)
	for i, rid := range slideRIDs {
		fmt.Fprintf(&b, `<p:sldId id="%d" r:id="%s"/>`, 256+i, rid)
	}
	b.WriteString(`</p:sldIdLst>`)

	if pkg.slideType != "" {
		fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d" type="%s"/>`, pkg.slideCX, pkg.slideCY, esc(pkg.slideType))
	} else {
		fmt.Fprintf(&b, `<p:sldSz cx="%d" cy="%d"/>`, pkg.slideCX, pkg.slideCY)
	}
	fmt.Fprintf(&b, `<p:notesSz cx="%d" cy="%d"/>`, pkg.notesCX, pkg.notesCY)

	if pkg.textStyleXML != "" {
		b.WriteString(`<p:defaultTextStyle>` + pkg.textStyleXML + `</p:defaultTextStyle>`)
	}
	b.WriteString(`</p:presentation>`)
	return b.String()
}

// deckLayout positions text on the package's slide size.
type deckLayout struct {
	cx, cy int64
	style  *models.TemplateStyle
}

func newDeckLayout(pkg *basePackage, style *models.TemplateStyle) *deckLayout {
	return &deckLayout{cx: pkg.slideCX, cy: pkg.slideCY, style: style}
}

type emuRect struct {
	x, y, cx, cy int64
}

// box maps a rectangle on the 10in x 5.625in reference canvas onto the slide.
func (d *deckLayout) box(x, y, w, h float64) emuRect {
	sx := float64(d.cx) / (canvasWidthIn * models.EMUPerInch)
	sy := float64(d.cy) / (canvasHeightIn * models.EMUPerInch)
	return emuRect{
		x:  int64(x * models.EMUPerInch * sx),
		y:  int64(y * models.EMUPerInch * sy),
		cx: int64(w * models.EMUPerInch * sx),
		cy: int64(h * models.EMUPerInch * sy),
	}
}

type runStyle struct {
	sizePt int
	bold   bool
	font   string
	color  string
}

func (r runStyle) rPr() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<a:rPr lang="en-US" sz="%d" b="%d" dirty="0">`, r.sizePt*100, boolInt(r.bold))
	if c := hexColor(r.color); c != "" {
		fmt.Fprintf(&b, `<a:solidFill><a:srgbClr val="%s"/></a:solidFill>`, c)
	}
	if r.font != "" {
		fmt.Fprintf(&b, `<a:latin typeface="%s"/><a:cs typeface="%s"/>`, esc(r.font), esc(r.font))
	}
	b.WriteString(`</a:rPr>`)
	return b.String()
}

func (d *deckLayout) titleSlideXML(title string) string {
	titleStyle := runStyle{sizePt: 32, bold: true, font: d.style.Fonts.Title, color: d.style.Colors.Primary}
	para := `<a:p><a:pPr algn="ctr"/>` + textRun(title, titleStyle) + `</a:p>`
	return slideXML(textBox(2, "Title", d.box(1, 2, 8, 1.5), "ctr", para))
}

func (d *deckLayout) contentSlideXML(slide models.SlideContent) string {
	titleStyle := runStyle{sizePt: 24, bold: true, font: d.style.Fonts.Title, color: d.style.Colors.Primary}
	shapes := textBox(2, "Title", d.box(0.5, 0.5, 9, 0.8), "ctr", `<a:p>`+textRun(slide.Title, titleStyle)+`</a:p>`)

	if len(slide.Content) > 0 {
		bodyStyle := runStyle{sizePt: 18, font: d.style.Fonts.Body, color: d.style.Colors.Text}
		var paras strings.Builder
		for _, item := range slide.Content {
			paras.WriteString(`<a:p><a:pPr marL="285750" indent="-285750"><a:buFont typeface="Arial"/><a:buChar char="&#8226;"/></a:pPr>`)
			paras.WriteString(textRun(item, bodyStyle))
			paras.WriteString(`</a:p>`)
		}
		shapes += textBox(3, "Content", d.box(0.5, 1.5, 9, 3.5), "t", paras.String())
	}
	return slideXML(shapes)
}

func textRun(text string, style runStyle) string {
	return `<a:r>` + style.rPr() + `<a:t>` + esc(text) + `</a:t></a:r>`
}

func textBox(id int, name string, r emuRect, anchor, paragraphs string) string {
	return fmt.Sprintf(`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s %d"/><p:cNvSpPr txBox="1"/><p:nvPr/></p:nvSpPr>`, id, name, id-1) +
		fmt.Sprintf(`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr>`, r.x, r.y, r.cx, r.cy) +
		fmt.Sprintf(`<p:txBody><a:bodyPr wrap="square" rtlCol="0" anchor="%s"><a:normAutofit/></a:bodyPr><a:lstStyle/>`, anchor) +
		paragraphs +
		`</p:txBody></p:sp>`
}

func slideXML(shapes string) string {
	return xmlHeader +
		`<p:sld ` + nsPresentations + `>` +
		`<p:cSld><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
		`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>` +
		shapes +
		`</p:spTree></p:cSld>` +
		`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
		`</p:sld>`
}

func notesSlideXML(notes string) string {
	var paras strings.Builder
	for _, line := range strings.Split(notes, "\n") {
		paras.WriteString(`<a:p><a:r><a:rPr lang="en-US" dirty="0"/><a:t>` + esc(strings.TrimRight(line, "\r")) + `</a:t></a:r></a:p>`)
	}

	return xmlHeader +
		`<p:notes ` + nsPresentations + `>` +
		`<p:cSld><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr><p:grpSpPr/>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder 1"/><p:cNvSpPr><a:spLocks noGrp="1" noRot="1" noChangeAspect="1"/></p:cNvSpPr><p:nvPr><p:ph type="sldImg"/></p:nvPr></p:nvSpPr><p:spPr/></p:sp>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" idx="1"/></p:nvPr></p:nvSpPr><p:spPr/>` +
		`<p:txBody><a:bodyPr/><a:lstStyle/>` + paras.String() + `</p:txBody></p:sp>` +
		`</p:spTree></p:cSld>` +
		`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
		`</p:notes>`
}

func notesMasterXML(cx, cy int64) string {
	imgX, imgY, imgW, imgH := cx/8, cy/12, cx*3/4, cy*3/8
	bodyX, bodyY, bodyW, bodyH := cx/10, cy/2, cx*4/5, cy*3/8
	return xmlHeader +
		`<p:notesMaster ` + nsPresentations + `>` +
		`<p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
		`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>` +
		`<p:sp><p:nvSpPr><p:cNvPr id="2" name="Slide Image Placeholder 1"/><p:cNvSpPr><a:spLocks noGrp="1" noRot="1" noChangeAspect="1"/></p:cNvSpPr><p:nvPr><p:ph type="sldImg" idx="2"/></p:nvPr></p:nvSpPr>` +
		fmt.Sprintf(`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom><a:noFill/></p:spPr></p:sp>`, imgX, imgY, imgW, imgH) +
		`<p:sp><p:nvSpPr><p:cNvPr id="3" name="Notes Placeholder 2"/><p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr><p:nvPr><p:ph type="body" sz="quarter" idx="3"/></p:nvPr></p:nvSpPr>` +
		fmt.Sprintf(`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`, bodyX, bodyY, bodyW, bodyH) +
		`<p:txBody><a:bodyPr vert="horz" lIns="91440" tIns="45720" rIns="91440" bIns="45720" rtlCol="0"/><a:lstStyle/><a:p><a:pPr lvl="0"/><a:r><a:rPr lang="en-US"/><a:t>Click to edit Master text styles</a:t></a:r></a:p></p:txBody></p:sp>` +
		`</p:spTree></p:cSld>` +
		`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
		`<p:notesStyle><a:lvl1pPr marL="0" algn="l" defTabSz="914400" rtl="0" eaLnBrk="1" latinLnBrk="0" hangingPunct="1"><a:defRPr sz="1200" kern="1200"><a:solidFill><a:schemeClr val="tx1"/></a:solidFill><a:latin typeface="+mn-lt"/><a:ea typeface="+mn-ea"/><a:cs typeface="+mn-cs"/></a:defRPr></a:lvl1pPr></p:notesStyle>` +
		`</p:notesMaster>`
}

// hexColor turns "#1f4e79" into "1F4E79"; anything else yields "".
func hexColor(c string) string {
	c = strings.TrimPrefix(strings.TrimSpace(c), "#")
	if len(c) != 6 {
		return ""
	}
	for _, r := range c {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return ""
		}
	}
	return strings.ToUpper(c)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// OutputFilename is the public name given to a generated deck.
func OutputFilename(id string) string {
	return "presentation-" + id + ".pptx"
}

// IsOutputFilename reports whether name is a bare generated-deck file name.
func IsOutputFilename(name string) bool {
	return name != "" && name == path.Base(name) && !strings.Contains(name, "..") &&
		!strings.ContainsAny(name, `/\`) && strings.HasSuffix(strings.ToLower(name), ".pptx")
}
