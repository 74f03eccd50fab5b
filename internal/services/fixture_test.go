package services

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// buildPackage writes a .pptx/.potx built from the embedded base package.
// Entries in replace overwrite or add parts; an empty value drops the part.
func buildPackage(t *testing.T, name string, replace map[string]string) string {
	t.Helper()

	base, err := fs.Sub(baseAssets, "assets/base")
	if err != nil {
		t.Fatal(err)
	}
	parts := map[string][]byte{}
	err = fs.WalkDir(base, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(base, p)
		parts[p] = data
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	for p, content := range replace {
		if content == "" {
			delete(parts, p)
			continue
		}
		parts[p] = []byte(content)
	}

	names := make([]string, 0, len(parts))
	for p := range parts {
		names = append(names, p)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range names {
		fw, err := zw.Create(p)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(parts[p])
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readBasePart(t *testing.T, name string) string {
	t.Helper()
	data, err := fs.ReadFile(baseAssets, "assets/base/"+name)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// openDeck returns the parts of a generated deck by name.
func openDeck(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("deck is not a valid zip: %v", err)
	}
	defer zr.Close()

	parts := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatal(err)
		}
		parts[f.Name] = string(data)
	}
	return parts
}

func countPrefix(parts map[string]string, prefix, suffix string) int {
	n := 0
	for name := range parts {
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			n++
		}
	}
	return n
}

const customTheme = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="Brand">
<a:themeElements>
<a:clrScheme name="Brand Colors">
<a:dk1><a:sysClr val="windowText" lastClr="112233"/></a:dk1>
<a:lt1><a:srgbClr val="FAFAFA"/></a:lt1>
<a:dk2><a:srgbClr val="222222"/></a:dk2>
<a:lt2><a:srgbClr val="EEEEEE"/></a:lt2>
<a:accent1><a:srgbClr val="AA0000"/></a:accent1>
<a:accent2><a:srgbClr val="00AA00"/></a:accent2>
<a:accent3><a:srgbClr val="0000AA"/></a:accent3>
<a:accent4><a:srgbClr val="AAAA00"/></a:accent4>
<a:accent5><a:srgbClr val="00AAAA"/></a:accent5>
<a:accent6><a:srgbClr val="AA00AA"/></a:accent6>
<a:hlink><a:srgbClr val="0563C1"/></a:hlink>
<a:folHlink><a:srgbClr val="954F72"/></a:folHlink>
</a:clrScheme>
<a:fontScheme name="Brand Fonts">
<a:majorFont><a:latin typeface="Georgia"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>
<a:minorFont><a:latin typeface="Verdana"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>
</a:fontScheme>
<a:fmtScheme name="Office"><a:fillStyleLst/><a:lnStyleLst/><a:effectStyleLst/><a:bgFillStyleLst/></a:fmtScheme>
</a:themeElements>
</a:theme>`
