package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "billminder/internal/errors"
	"billminder/internal/models"
	"billminder/internal/storage"
)

// Format is an output format for the monthly report.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatZIP  Format = "zip"
)

// ParseFormat accepts pdf, xlsx (or excel), csv and zip, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return FormatPDF, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	case "zip":
		return FormatZIP, nil
	}
	return "", apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("unsupported report format %q", s))
}

// File is a rendered report ready to be served as a download.
type File struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Renderer turns an aggregated report into bytes.
type Renderer interface {
	Render(ctx context.Context, r *Report) (*File, error)
}

// Options selects the format and describes the period being reported.
type Options struct {
	Format         Format
	Year           int
	Month          time.Month
	CategoryColors map[string]string
	// IncludeAttachments is only meaningful for FormatZIP. ZIP bundles
	// always carry attachments unless this is explicitly false.
	IncludeAttachments *bool
}

// Generator aggregates bills and dispatches to the renderer for a format.
type Generator struct {
	store  storage.FileStore
	loc    *time.Location
	logger *zap.SugaredLogger
	now    func() time.Time
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithNow overrides the clock used for the generation timestamp.
func WithNow(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// NewGenerator builds a generator. store may be nil when ZIP bundles are
// never requested; attachments are then skipped.
func NewGenerator(store storage.FileStore, loc *time.Location, logger *zap.SugaredLogger, opts ...GeneratorOption) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	g := &Generator{store: store, loc: loc, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders bills in the requested format. Renderer failures are
// returned as ErrRenderFailure.
func (g *Generator) Generate(ctx context.Context, bills []models.Bill, opts Options) (*File, error) {
	renderer, err := g.renderer(opts)
	if err != nil {
		return nil, err
	}

	rep := Aggregate(bills, g.loc)
	rep.Year = opts.Year
	rep.Month = opts.Month
	rep.CategoryColors = opts.CategoryColors
	rep.GeneratedAt = g.now()

	file, err := renderer.Render(ctx, &rep)
	if err != nil {
		if apperrors.Code(err) != "" {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.ErrRenderFailure, err)
	}
	return file, nil
}

func (g *Generator) renderer(opts Options) (Renderer, error) {
	switch opts.Format {
	case FormatPDF:
		return PDFRenderer{}, nil
	case FormatXLSX:
		return XLSXRenderer{}, nil
	case FormatCSV:
		return CSVRenderer{}, nil
	case FormatZIP:
		include := opts.IncludeAttachments == nil || *opts.IncludeAttachments
		return ZIPRenderer{Store: g.store, IncludeAttachments: include, Logger: g.logger}, nil
	}
	return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("unsupported report format %q", opts.Format))
}

func baseName(r *Report) string {
	return fmt.Sprintf("relatorio-%04d-%02d", r.Year, int(r.Month))
}
