package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	documentRelsPart = "word/_rels/document.xml.rels"

	// numberingRelationship declares the numbering part to the main
	// document. The library owns the relationships part and has no hook
	// for extra entries, so the finished archive is patched instead.
	numberingRelationship = `<Relationship Id="rIdNum" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering" Target="numbering.xml"></Relationship>`
)

// write packs the document and streams the patched archive to w.
func (e *Encoder) write(w io.Writer) error {
	var packed bytes.Buffer
	if _, err := e.doc.WriteTo(&packed); err != nil {
		return fmt.Errorf("pack document: %w", err)
	}
	return patchRelationships(w, packed.Bytes())
}

// patchRelationships copies the archive entry by entry, inserting the
// numbering relationship into the main document's relationships part.
func patchRelationships(w io.Writer, packed []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(packed), int64(len(packed)))
	if err != nil {
		return fmt.Errorf("reopen packed document: %w", err)
	}

	zw := zip.NewWriter(w)
	for _, entry := range zr.File {
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open part %s: %w", entry.Name, err)
		}
		out, err := zw.Create(entry.Name)
		if err != nil {
			rc.Close()
			return fmt.Errorf("create part %s: %w", entry.Name, err)
		}
		if entry.Name == documentRelsPart {
			err = patchRelsPart(out, rc)
		} else {
			_, err = io.Copy(out, rc)
		}
		rc.Close()
		if err != nil {
			return fmt.Errorf("write part %s: %w", entry.Name, err)
		}
	}
	return zw.Close()
}

func patchRelsPart(w io.Writer, r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	content := string(raw)
	const closer = "</Relationships>"
	if !strings.Contains(content, closer) {
		return fmt.Errorf("malformed relationships part")
	}
	content = strings.Replace(content, closer, numberingRelationship+closer, 1)
	_, err = io.WriteString(w, content)
	return err
}
