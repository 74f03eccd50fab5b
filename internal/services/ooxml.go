package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	nsPackageRels   = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsOfficeRels    = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsPresentations = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

	relSlideMaster  = nsOfficeRels + "/slideMaster"
	relSlideLayout  = nsOfficeRels + "/slideLayout"
	relSlide        = nsOfficeRels + "/slide"
	relNotesSlide   = nsOfficeRels + "/notesSlide"
	relNotesMaster  = nsOfficeRels + "/notesMaster"
	relTheme        = nsOfficeRels + "/theme"
	relPresProps    = nsOfficeRels + "/presProps"
	relViewProps    = nsOfficeRels + "/viewProps"
	relTableStyles  = nsOfficeRels + "/tableStyles"
	relOfficeDoc    = nsOfficeRels + "/officeDocument"
	relExtendedProp = nsOfficeRels + "/extended-properties"
	relCoreProps    = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties"

	ctPresentationMain = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ctSlide            = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctNotesSlide       = "application/vnd.openxmlformats-officedocument.presentationml.notesSlide+xml"
	ctNotesMaster      = "application/vnd.openxmlformats-officedocument.presentationml.notesMaster+xml"
	ctTheme            = "application/vnd.openxmlformats-officedocument.theme+xml"
	ctCoreProps        = "application/vnd.openxmlformats-package.core-properties+xml"
	ctExtendedProps    = "application/vnd.openxmlformats-officedocument.extended-properties+xml"
	ctRelationships    = "application/vnd.openxmlformats-package.relationships+xml"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

	defaultNotesCX = 6858000
	defaultNotesCY = 9144000
)

type relationshipsXML struct {
	Rels []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type contentTypesXML struct {
	Defaults []struct {
		Extension   string `xml:"Extension,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Default"`
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

type presentationPartXML struct {
	Masters []struct {
		Attrs []xml.Attr `xml:",any,attr"`
	} `xml:"sldMasterIdLst>sldMasterId"`
	SlideSize *struct {
		CX   int64  `xml:"cx,attr"`
		CY   int64  `xml:"cy,attr"`
		Type string `xml:"type,attr"`
	} `xml:"sldSz"`
	NotesSize *struct {
		CX int64 `xml:"cx,attr"`
		CY int64 `xml:"cy,attr"`
	} `xml:"notesSz"`
	DefaultTextStyle *struct {
		Inner string `xml:",innerxml"`
	} `xml:"defaultTextStyle"`
}

// masterRef is one entry of the source sldMasterIdLst.
type masterRef struct {
	ID   string
	Part string
}

// basePackage is the set of reusable parts (masters, layouts, themes, media)
// of a source deck or template.
type basePackage struct {
	fsys         fs.FS
	parts        []string
	partSet      map[string]bool
	defaults     map[string]string
	overrides    map[string]string
	masters      []masterRef
	notesMaster  string
	presProps    string
	viewProps    string
	tableStyles  string
	theme        string
	slideCX      int64
	slideCY      int64
	slideType    string
	notesCX      int64
	notesCY      int64
	textStyleXML string
	layouts      []layoutPart
}

type layoutPart struct {
	Part string
	Type string
	Name string
}

// loadBasePackage reads the structural parts of a presentation package and
// reports an error when it cannot serve as a base for a new deck.
func loadBasePackage(fsys fs.FS) (*basePackage, error) {
	pkg := &basePackage{
		fsys:      fsys,
		partSet:   map[string]bool{},
		defaults:  map[string]string{},
		overrides: map[string]string{},
	}

	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			pkg.parts = append(pkg.parts, name)
			pkg.partSet[name] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list package parts: %w", err)
	}
	sort.Strings(pkg.parts)

	var ct contentTypesXML
	if err := pkg.decode("[Content_Types].xml", &ct); err != nil {
		return nil, err
	}
	for _, d := range ct.Defaults {
		pkg.defaults[strings.ToLower(d.Extension)] = d.ContentType
	}
	for _, o := range ct.Overrides {
		pkg.overrides[strings.TrimPrefix(o.PartName, "/")] = o.ContentType
	}

	var pres presentationPartXML
	if err := pkg.decode(presentationPart, &pres); err != nil {
		return nil, err
	}
	var rels relationshipsXML
	if err := pkg.decode("ppt/_rels/presentation.xml.rels", &rels); err != nil {
		return nil, err
	}

	byID := map[string]relationshipXML{}
	for _, rel := range rels.Rels {
		byID[rel.ID] = rel
		if rel.TargetMode == "External" {
			continue
		}
		part := resolvePart("ppt", rel.Target)
		if !pkg.partSet[part] {
			continue
		}
		switch rel.Type {
		case relNotesMaster:
			pkg.notesMaster = part
		case relPresProps:
			pkg.presProps = part
		case relViewProps:
			pkg.viewProps = part
		case relTableStyles:
			pkg.tableStyles = part
		case relTheme:
			pkg.theme = part
		}
	}

	for _, m := range pres.Masters {
		var id, rid string
		for _, a := range m.Attrs {
			switch {
			case a.Name.Local == "id" && a.Name.Space == nsOfficeRels:
				rid = a.Value
			case a.Name.Local == "id" && a.Name.Space == "":
				id = a.Value
			}
		}
		rel, ok := byID[rid]
		if !ok || rel.Type != relSlideMaster {
			continue
		}
		part := resolvePart("ppt", rel.Target)
		if !pkg.partSet[part] {
			continue
		}
		pkg.masters = append(pkg.masters, masterRef{ID: id, Part: part})
	}
	if len(pkg.masters) == 0 {
		return nil, errors.New("package has no usable slide master")
	}
	if pkg.theme == "" && !pkg.partSet[themePart] {
		return nil, errors.New("package has no theme")
	}

	pkg.slideCX, pkg.slideCY = 9144000, 5143500
	if pres.SlideSize != nil && pres.SlideSize.CX > 0 && pres.SlideSize.CY > 0 {
		pkg.slideCX, pkg.slideCY, pkg.slideType = pres.SlideSize.CX, pres.SlideSize.CY, pres.SlideSize.Type
	}
	pkg.notesCX, pkg.notesCY = defaultNotesCX, defaultNotesCY
	if pres.NotesSize != nil && pres.NotesSize.CX > 0 && pres.NotesSize.CY > 0 {
		pkg.notesCX, pkg.notesCY = pres.NotesSize.CX, pres.NotesSize.CY
	}
	if pres.DefaultTextStyle != nil {
		pkg.textStyleXML = pres.DefaultTextStyle.Inner
	}

	for _, name := range pkg.parts {
		if !strings.HasPrefix(name, layoutPrefix) || !strings.HasSuffix(name, ".xml") {
			continue
		}
		var layout layoutXML
		if err := pkg.decode(name, &layout); err != nil {
			continue
		}
		pkg.layouts = append(pkg.layouts, layoutPart{Part: name, Type: layout.Type, Name: layout.CSld.Name})
	}
	if len(pkg.layouts) == 0 {
		return nil, errors.New("package has no slide layouts")
	}
	sort.SliceStable(pkg.layouts, func(i, j int) bool {
		return partIndex(pkg.layouts[i].Part) < partIndex(pkg.layouts[j].Part)
	})

	return pkg, nil
}

func (p *basePackage) decode(name string, v interface{}) error {
	f, err := p.fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	if err := decodeXML(f, v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// layoutOfType returns the first layout whose type matches one of types, in
// preference order, falling back to the first layout.
func (p *basePackage) layoutOfType(types ...string) string {
	for _, t := range types {
		for _, l := range p.layouts {
			if l.Type == t {
				return l.Part
			}
		}
	}
	return p.layouts[0].Part
}

// contentType resolves a part's content type from the source package.
func (p *basePackage) contentType(part string) (string, bool) {
	if ct, ok := p.overrides[part]; ok {
		return ct, true
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(part), "."))
	_, ok := p.defaults[ext]
	return "", ok
}

// freePart picks the first name from format (with one %d) that the source
// package does not already contain. Unreferenced parts are still copied, so
// a name counts as taken whether or not anything links to it.
func (p *basePackage) freePart(format string) string {
	for i := 1; ; i++ {
		name := fmt.Sprintf(format, i)
		if !p.partSet[name] {
			return name
		}
	}
}

// copiedFromBase reports whether a source part is carried into the new deck.
func copiedFromBase(name string) bool {
	switch name {
	case "[Content_Types].xml",
		"_rels/.rels",
		presentationPart,
		"ppt/_rels/presentation.xml.rels",
		"ppt/commentAuthors.xml":
		return false
	}
	for _, prefix := range []string{
		"docProps/",
		"ppt/slides/",
		"ppt/notesSlides/",
		"ppt/handoutMasters/",
		"ppt/comments/",
		"customXml/",
	} {
		if strings.HasPrefix(name, prefix) {
			return false
		}
	}
	return true
}

// resolvePart turns a relationship target relative to dir into a part name.
func resolvePart(dir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(dir, target))
}

// relTarget is the relationship target of part as seen from a part in dir.
func relTarget(dir, part string) string {
	fromParts := strings.Split(dir, "/")
	toParts := strings.Split(part, "/")
	i := 0
	for i < len(fromParts) && i < len(toParts)-1 && fromParts[i] == toParts[i] {
		i++
	}
	var b strings.Builder
	for j := i; j < len(fromParts); j++ {
		b.WriteString("../")
	}
	b.WriteString(strings.Join(toParts[i:], "/"))
	return b.String()
}

// packageWriter accumulates parts and content types for a new deck.
type packageWriter struct {
	zw        *zip.Writer
	defaults  map[string]string
	overrides map[string]string
	written   map[string]bool
}

func newPackageWriter(w io.Writer) *packageWriter {
	return &packageWriter{
		zw:        zip.NewWriter(w),
		defaults:  map[string]string{"rels": ctRelationships, "xml": "application/xml"},
		overrides: map[string]string{},
		written:   map[string]bool{},
	}
}

func (w *packageWriter) writeString(name, contentType, content string) error {
	return w.writeBytes(name, contentType, []byte(content))
}

func (w *packageWriter) writeBytes(name, contentType string, payload []byte) error {
	if w.written[name] {
		return fmt.Errorf("duplicate zip entry %s", name)
	}
	out, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	if _, err := out.Write(payload); err != nil {
		return fmt.Errorf("write zip entry %s: %w", name, err)
	}
	w.written[name] = true
	if contentType != "" {
		w.overrides[name] = contentType
	}
	return nil
}

func (w *packageWriter) copyPart(fsys fs.FS, name, contentType string) error {
	in, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("read template entry %s: %w", name, err)
	}
	defer in.Close()

	out, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("write template entry %s: %w", name, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy template entry %s: %w", name, err)
	}
	w.written[name] = true
	if contentType != "" {
		w.overrides[name] = contentType
	}
	return nil
}

func (w *packageWriter) close() error {
	if err := w.writeRaw("[Content_Types].xml", w.contentTypes()); err != nil {
		_ = w.zw.Close()
		return err
	}
	return w.zw.Close()
}

func (w *packageWriter) writeRaw(name, content string) error {
	out, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %s: %w", name, err)
	}
	_, err = io.WriteString(out, content)
	return err
}

func (w *packageWriter) contentTypes() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Types xmlns="` + nsContentTypes + `">`)
	for _, ext := range sortedKeys(w.defaults) {
		fmt.Fprintf(&b, `<Default Extension="%s" ContentType="%s"/>`, esc(ext), esc(w.defaults[ext]))
	}
	for _, part := range sortedKeys(w.overrides) {
		fmt.Fprintf(&b, `<Override PartName="/%s" ContentType="%s"/>`, esc(part), esc(w.overrides[part]))
	}
	b.WriteString(`</Types>`)
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type relBuilder struct {
	dir  string
	rels []relationshipXML
}

func newRelBuilder(ownerPart string) *relBuilder {
	return &relBuilder{dir: path.Dir(ownerPart)}
}

// add registers a relationship to part and returns its id.
func (r *relBuilder) add(relType, part string) string {
	id := fmt.Sprintf("rId%d", len(r.rels)+1)
	r.rels = append(r.rels, relationshipXML{ID: id, Type: relType, Target: relTarget(r.dir, part)})
	return id
}

func (r *relBuilder) String() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="` + nsPackageRels + `">`)
	for _, rel := range r.rels {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"/>`, rel.ID, esc(rel.Type), esc(rel.Target))
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

// relsPartFor returns the _rels part name belonging to part.
func relsPartFor(part string) string {
	if part == "" {
		return "_rels/.rels"
	}
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}

func esc(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func rootRelsXML() string {
	r := &relBuilder{dir: "."}
	r.rels = []relationshipXML{
		{ID: "rId1", Type: relOfficeDoc, Target: presentationPart},
		{ID: "rId2", Type: relCoreProps, Target: "docProps/core.xml"},
		{ID: "rId3", Type: relExtendedProp, Target: "docProps/app.xml"},
	}
	return r.String()
}

func corePropsXML(title string, now time.Time) string {
	stamp := now.UTC().Format(time.RFC3339)
	return xmlHeader +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dc:title>` + esc(title) + `</dc:title>` +
		`<dc:creator>Presentation Generator</dc:creator>` +
		`<cp:lastModifiedBy>Presentation Generator</cp:lastModifiedBy>` +
		`<dcterms:created xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:created>` +
		`<dcterms:modified xsi:type="dcterms:W3CDTF">` + stamp + `</dcterms:modified>` +
		`</cp:coreProperties>`
}

func appPropsXML(titles []string, notesCount int) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">`)
	b.WriteString(`<Application>Presentation Generator</Application>`)
	fmt.Fprintf(&b, `<Slides>%d</Slides><Notes>%d</Notes><HiddenSlides>0</HiddenSlides>`, len(titles), notesCount)
	fmt.Fprintf(&b, `<HeadingPairs><vt:vector size="2" baseType="variant"><vt:variant><vt:lpstr>Slide Titles</vt:lpstr></vt:variant><vt:variant><vt:i4>%d</vt:i4></vt:variant></vt:vector></HeadingPairs>`, len(titles))
	fmt.Fprintf(&b, `<TitlesOfParts><vt:vector size="%d" baseType="lpstr">`, len(titles))
	for _, t := range titles {
		b.WriteString(`<vt:lpstr>` + esc(t) + `</vt:lpstr>`)
	}
	b.WriteString(`</vt:vector></TitlesOfParts>`)
	b.WriteString(`</Properties>`)
	return b.String()
}
