// Package rois reads the tab-separated ROI geometry tables exported with a
// recording session. Column sets and geometry derivation rules changed
// between acquisition software generations, so the right reader is picked
// from the resolved header via GetReader.
package rois

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"labview2nwb/internal/models"
	"labview2nwb/pkg/header"
)

// Record is the decoded geometry of one ROI, plus every raw table column
// preserved for lossless provenance storage.
type Record struct {
	// Index is the ROI index as recorded in the table.
	Index int

	// NumPixels is the total pixel count of the ROI.
	NumPixels int

	// Pixel bounding box of the ROI within the scan field.
	XStart, XStop int
	YStart, YStop int

	// ZStart and ZStop are the depth bounds in micrometres. These are the
	// only columns that need full double precision.
	ZStart, ZStop float64

	// AngleDeg is the ROI rotation angle in degrees.
	AngleDeg float64

	// NumLines is the explicit line-count column. Only the variable-size
	// ROI reader derives geometry from it; fixed-size readers compute
	// line counts from the bounding box instead.
	NumLines int

	// PixelsPerLine is the explicit per-line resolution column introduced
	// for variable-size ROIs. Zero for older tables.
	PixelsPerLine int

	// Raw holds every column of the table row keyed by canonical field
	// name (or the file column name when no mapping exists).
	Raw map[string]float64
}

// Reader decodes a ROI table and answers geometry queries about its rows.
// Implementations differ per schema generation; obtain one via GetReader.
type Reader interface {
	// ReadTable parses the tab-separated ROI table at path. The decoded
	// records are retained on the reader for the geometry queries below.
	ReadTable(path string) ([]Record, error)

	// Records returns the table decoded by ReadTable, in file order.
	Records() []Record

	// LinePixelCounts reports the scan geometry of ROI i: the number of
	// lines and the number of pixels per line.
	LinePixelCounts(i int) (lines, pixelsPerLine int, err error)

	// XYExtent reports the pixel extent of ROI i along X and Y.
	XYExtent(i int) (dx, dy int, err error)

	// ReferenceFrame names the spatial reference frame ROI i is
	// calibrated against. Fixed-size ROIs share one frame per depth;
	// variable-size ROIs each carry their own.
	ReferenceFrame(i int) (string, error)
}

// GetReader picks the ROI table reader matching the header's schema
// generation and, for 3.0.0, its variable-size ROI flag.
func GetReader(h header.Header) (Reader, error) {
	pointing := h.ImagingMode() == models.Pointing
	switch h.Version() {
	case header.VersionPre2018, header.Version231:
		return newClassicReader(pointing), nil
	case header.Version300:
		if header.VariableROIs(h) {
			return newVariableReader(), nil
		}
		return newV300Reader(pointing), nil
	}
	return nil, fmt.Errorf("%w %s", header.ErrUnsupportedVersion, h.Version())
}

// baseColumns maps the file column names shared by all generations to
// canonical field names. A fresh map is returned on every call so that no
// two reader instances can alias or mutate a shared table.
func baseColumns() map[string]string {
	return map[string]string{
		"ROI index":       "roi_index",
		"Pixels in ROI":   "num_pixels",
		"X start":         "x_start",
		"Y start":         "y_start",
		"Z start":         "z_start",
		"X stop":          "x_stop",
		"Y stop":          "y_stop",
		"Z stop":          "z_stop",
		"Laser Power (%)": "laser_power",
		"ROI Time (ns)":   "roi_time_ns",
		"Angle (deg)":     "angle_deg",
		"Composite ID":    "composite_id",
		"Number of lines": "num_lines",
		"Frame Size":      "frame_size",
		"Zoom":            "zoom",
		"ROI group ID":    "roi_group_id",
	}
}

// baseDoublePrecision lists the file columns that must keep full double
// precision. Everything else is quantized to single precision on read.
func baseDoublePrecision() map[string]bool {
	return map[string]bool{
		"Z start": true,
		"Z stop":  true,
	}
}

// tableReader implements the decoding shared by every generation: a column
// name mapping, per-column precision handling and integer coercion of the
// pixel bounds. Variants layer extra columns on top of the base maps.
type tableReader struct {
	columns         map[string]string
	doublePrecision map[string]bool
	records         []Record
}

func (r *tableReader) Records() []Record { return r.records }

// ReadTable parses the tab-separated table at path. The first row names the
// columns; all values are numeric. Most columns are quantized to single
// precision and widened; the acquisition software stores them through a
// half-precision intermediate, and that coarser rounding is deliberately not
// reproduced here, so low bits can differ from its own round-tripped values.
// Depth columns stay at full precision and the pixel bounds and counts are
// coerced to integers after reading.
func (r *tableReader) ReadTable(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ROI table: %v", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse ROI table: %v", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ROI table %s has no header row", path)
	}

	fileColumns := rows[0]
	r.records = make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := Record{Raw: make(map[string]float64, len(row))}
		for c, cell := range row {
			if c >= len(fileColumns) {
				break
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("bad value %q in ROI column %q: %v", cell, fileColumns[c], err)
			}
			fileName := fileColumns[c]
			if !r.doublePrecision[fileName] {
				value = float64(float32(value))
			}
			name := r.columns[fileName]
			if name == "" {
				name = fileName
			}
			rec.Raw[name] = value
		}
		r.fillRecord(&rec)
		r.records = append(r.records, rec)
	}
	return r.records, nil
}

// fillRecord copies the typed geometry fields out of the raw column values.
func (r *tableReader) fillRecord(rec *Record) {
	rec.Index = int(rec.Raw["roi_index"])
	rec.NumPixels = int(rec.Raw["num_pixels"])
	rec.XStart = int(rec.Raw["x_start"])
	rec.XStop = int(rec.Raw["x_stop"])
	rec.YStart = int(rec.Raw["y_start"])
	rec.YStop = int(rec.Raw["y_stop"])
	rec.ZStart = rec.Raw["z_start"]
	rec.ZStop = rec.Raw["z_stop"]
	rec.AngleDeg = rec.Raw["angle_deg"]
	rec.NumLines = int(rec.Raw["num_lines"])
	rec.PixelsPerLine = int(rec.Raw["resolution"])
}

func (r *tableReader) record(i int) (*Record, error) {
	if i < 0 || i >= len(r.records) {
		return nil, fmt.Errorf("ROI index %d out of range (table has %d rows)", i, len(r.records))
	}
	return &r.records[i], nil
}

// XYExtent reports the stop-minus-start pixel extents of ROI i.
func (r *tableReader) XYExtent(i int) (dx, dy int, err error) {
	rec, err := r.record(i)
	if err != nil {
		return 0, 0, err
	}
	return rec.XStop - rec.XStart, rec.YStop - rec.YStart, nil
}

// ReferenceFrame returns the depth-shared reference frame name for ROI i.
// All fixed-size ROIs imaged at the same Z share one calibrated frame.
func (r *tableReader) ReferenceFrame(i int) (string, error) {
	rec, err := r.record(i)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Zplane %g", rec.ZStart), nil
}

// derivedLinePixelCounts computes the scan geometry from the bounding box:
// with no rotation the lines run along Y and the pixels along X, and the
// axis assignment swaps for rotated ROIs. In pointing mode every ROI is a
// single pixel regardless of its recorded extent.
func (r *tableReader) derivedLinePixelCounts(i int, pointing bool) (lines, pixelsPerLine int, err error) {
	if pointing {
		return 1, 1, nil
	}
	rec, err := r.record(i)
	if err != nil {
		return 0, 0, err
	}
	dx := rec.XStop - rec.XStart
	dy := rec.YStop - rec.YStart
	if rec.AngleDeg == 0 {
		return dy, dx, nil
	}
	return dx, dy, nil
}
