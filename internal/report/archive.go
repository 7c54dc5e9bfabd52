package report

import (
	"archive/zip"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/NickArm/Invoice-System-sub001/internal/invoice"
)

// writeArchive zips attachments into a new file at dst on fs.
func writeArchive(fs afero.Fs, dst string, attachments []*invoice.Attachment, files Files) (err error) {
	f, err := fs.Create(dst)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing archive: %w", cerr)
		}
	}()

	zw := zip.NewWriter(f)
	names := make(map[string]int, len(attachments))

	for _, a := range attachments {
		w, err := zw.Create(entryName(a, names))
		if err != nil {
			return fmt.Errorf("adding %s: %w", a.Filename, err)
		}

		if err := files.CopyTo(w, a.Path); err != nil {
			return fmt.Errorf("copying %s: %w", a.Filename, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}

	return nil
}

// entryName keeps archive names unique: a.pdf, a (2).pdf, a (3).pdf.
func entryName(a *invoice.Attachment, seen map[string]int) string {
	name := path.Base(strings.ReplaceAll(a.Filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = a.ID.String() + path.Ext(a.Path)
	}

	seen[name]++
	if n := seen[name]; n > 1 {
		ext := path.Ext(name)
		name = strings.TrimSuffix(name, ext) + " (" + strconv.Itoa(n) + ")" + ext
	}

	return name
}
