package report

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"

	"go.uber.org/zap"

	"billminder/internal/storage"
)

const attachmentsDir = "anexos"

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ZIPRenderer bundles the PDF report with every invoice and payment proof
// that can still be read from the store. Missing files are skipped.
type ZIPRenderer struct {
	Store              storage.FileStore
	IncludeAttachments bool
	Logger             *zap.SugaredLogger
}

// Render implements Renderer.
func (z ZIPRenderer) Render(ctx context.Context, r *Report) (*File, error) {
	pdfFile, err := PDFRenderer{}.Render(ctx, r)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	if err := z.add(zw, r, pdfFile.Filename, pdfFile.Data); err != nil {
		return nil, err
	}

	if z.IncludeAttachments && z.Store != nil {
		for i, row := range r.Rows {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			slug := unsafeNameChars.ReplaceAllString(row.Name, "_")
			if row.HasInvoice {
				name := fmt.Sprintf("boleto-%d-%s-%s", i+1, slug, path.Base(row.InvoiceFilename))
				if err := z.addStored(ctx, zw, r, row.InvoiceFile, name); err != nil {
					return nil, err
				}
			}
			if row.HasProof {
				name := fmt.Sprintf("comprovante-%d-%s-%s", i+1, slug, path.Base(row.ProofFilename))
				if err := z.addStored(ctx, zw, r, row.ProofFile, name); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}

	return &File{
		Data:        buf.Bytes(),
		Filename:    fmt.Sprintf("relatorio-completo-%04d-%02d.zip", r.Year, int(r.Month)),
		ContentType: "application/zip",
	}, nil
}

func (z ZIPRenderer) addStored(ctx context.Context, zw *zip.Writer, r *Report, key, name string) error {
	data, err := z.Store.Read(ctx, key)
	if err != nil {
		if z.Logger != nil {
			if errors.Is(err, storage.ErrNotFound) {
				z.Logger.Debugw("Attachment missing, skipping", "key", key)
			} else {
				z.Logger.Warnw("Failed to read attachment, skipping", "key", key, "error", err)
			}
		}
		return nil
	}
	return z.add(zw, r, path.Join(attachmentsDir, name), data)
}

func (z ZIPRenderer) add(zw *zip.Writer, r *Report, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: r.GeneratedAt,
	})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
