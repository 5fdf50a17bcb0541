package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/cholera-map-dashboard/internal/domain"
)

// Loader reads row-oriented CSV files into datasets.
// It implements pipeline.DatasetLoader.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a CSV dataset loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load opens path and parses it as a dataset called name.
func (l *Loader) Load(ctx context.Context, name, path string) (domain.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return domain.Dataset{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("open %s dataset: %w", name, err)
	}
	defer f.Close()

	ds, err := Parse(name, f)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.Debug("dataset loaded", "dataset", name, "path", path, "records", ds.Len(), "columns", len(ds.Columns))
	return ds, nil
}

// Parse reads a CSV stream with a header row. The X and Y columns are required
// and must hold finite numbers; every column, including X and Y, is kept in
// Record.Fields.
func Parse(name string, r io.Reader) (domain.Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return domain.Dataset{}, fmt.Errorf("%w: %s has no header row", domain.ErrMissingColumn, name)
	}
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read %s header: %w", name, err)
	}
	header = normalizeHeader(header)

	xIdx, yIdx := indexOf(header, domain.ColumnX), indexOf(header, domain.ColumnY)
	if xIdx < 0 {
		return domain.Dataset{}, fmt.Errorf("%w: %s has no %q column", domain.ErrMissingColumn, name, domain.ColumnX)
	}
	if yIdx < 0 {
		return domain.Dataset{}, fmt.Errorf("%w: %s has no %q column", domain.ErrMissingColumn, name, domain.ColumnY)
	}

	ds := domain.Dataset{Name: name, Columns: header}
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("read %s line %d: %w", name, line, err)
		}

		x, err := parseCoordinate(row, xIdx)
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("%s line %d column %s: %w", name, line, domain.ColumnX, err)
		}
		y, err := parseCoordinate(row, yIdx)
		if err != nil {
			return domain.Dataset{}, fmt.Errorf("%s line %d column %s: %w", name, line, domain.ColumnY, err)
		}

		ds.Records = append(ds.Records, domain.Record{
			Line:   line,
			X:      x,
			Y:      y,
			Fields: fields(header, row),
		})
	}
	return ds, nil
}

// normalizeHeader trims whitespace and a leading UTF-8 byte order mark.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func indexOf(header []string, col string) int {
	for i, h := range header {
		if h == col {
			return i
		}
	}
	return -1
}

func parseCoordinate(row []string, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, fmt.Errorf("%w: value missing", domain.ErrInvalidCoordinate)
	}
	raw := strings.TrimSpace(row[idx])
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidCoordinate, raw)
	}
	return v, nil
}

func fields(header, row []string) map[string]string {
	out := make(map[string]string, len(header))
	for i, h := range header {
		if i < len(row) {
			out[h] = strings.TrimSpace(row[i])
		}
	}
	return out
}
