// Package ingestion turns uploaded report files into plain text.
package ingestion

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrUnsupportedFormat means the upload is not a format this service
	// extracts text from.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtraction means the file claimed a supported format but no text
	// could be recovered from it.
	ErrExtraction = errors.New("document text extraction failed")
)

// ExtractDocx reads the WordprocessingML main document part of a .docx
// container and returns its plain text, one line per paragraph, with
// explicit tabs and line breaks inside runs preserved.
func ExtractDocx(r io.ReaderAt, size int64) (string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("%w: not a docx container: %v", ErrExtraction, err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			part = f
			break
		}
	}
	if part == nil {
		return "", fmt.Errorf("%w: container has no word/document.xml part", ErrExtraction)
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("%w: opening document part: %v", ErrExtraction, err)
	}
	defer rc.Close()

	text, err := parseDocumentXML(rc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: document contains no text", ErrExtraction)
	}

	return text, nil
}

// parseDocumentXML walks the document token stream. Text nodes are only
// collected inside w:t elements; w:tab and w:br count only inside runs,
// keeping paragraph-property tab stops out of the output.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var b strings.Builder
	var inText, inRun bool

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document xml: %v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab":
				if inRun {
					b.WriteString("\t")
				}
			case "br", "cr":
				if inRun {
					b.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}
