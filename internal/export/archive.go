package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/pwalczyk/invoiceflow/internal/domain/entity"
)

// BuildArchive packs the original documents of a batch into a zip archive,
// grouped into expense-type/project/ directories. Invoices without an
// expense type or project fall into "uncategorized". Entry order follows
// input order so identical batches produce identical archives.
func BuildArchive(invoices []*entity.Invoice, label string) (*Artifact, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	used := make(map[string]int)
	for _, inv := range invoices {
		if len(inv.OriginalFile.Data) == 0 {
			continue
		}

		name := archiveEntryName(inv)
		if n := used[name]; n > 0 {
			ext := path.Ext(name)
			name = fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n+1, ext)
		}
		used[archiveEntryName(inv)]++

		entry, err := w.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: inv.CreatedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry %s: %w", name, err)
		}
		if _, err := entry.Write(inv.OriginalFile.Data); err != nil {
			return nil, fmt.Errorf("failed to write archive entry %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return &Artifact{
		Format:    "archive",
		Filename:  fmt.Sprintf("originals_%s.zip", label),
		MediaType: "application/zip",
		Data:      buf.Bytes(),
		RowCount:  len(invoices),
	}, nil
}

func archiveEntryName(inv *entity.Invoice) string {
	filename := inv.OriginalFile.Filename
	if filename == "" {
		filename = inv.ID + extensionFor(inv.OriginalFile.MediaType)
	}
	return path.Join(archiveSegment(inv.ExpenseType), archiveSegment(inv.Project), filename)
}

func archiveSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "uncategorized"
	}
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, s)
	if s == "" {
		return "uncategorized"
	}
	return s
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case entity.MediaTypePDF:
		return ".pdf"
	case entity.MediaTypeJPEG:
		return ".jpg"
	case entity.MediaTypePNG:
		return ".png"
	case entity.MediaTypeExchangeXML:
		return ".xml"
	}
	return ".bin"
}
