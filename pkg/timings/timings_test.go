package timings_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"labview2nwb/pkg/header"
	"labview2nwb/pkg/rois"
	"labview2nwb/pkg/timings"
)

const (
	numTrials      = 2
	cyclesPerTrial = 3
	numROIs        = 4
	linesPerROI    = 5
	pixelsPerLine  = 6
	dwellTime      = 1e-6
)

// lineTimeUS returns the synthetic per-line time in microseconds for the
// given trial, cycle within trial, ROI and line. Times are relative to
// trial start, so the second trial restarts from a slightly different base.
func lineTimeUS(trial, cycle, roi, line int) float64 {
	base := 200.0
	if trial == 1 {
		base = 100.0
	}
	return base + 2000*float64(cycle) + 300*float64(roi) + 50.1*float64(line)
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

// v231TimingFile flattens the synthetic tensor the way the hardware does:
// ROI-major within a cycle, cycle-major within a trial, trial-major
// overall, with a few zero padding rows sprinkled in as seen in the wild.
func v231TimingFile(t *testing.T) string {
	var b strings.Builder
	b.WriteString("Image Time [us]\n")
	for trial := 0; trial < numTrials; trial++ {
		for cycle := 0; cycle < cyclesPerTrial; cycle++ {
			for roi := 0; roi < numROIs; roi++ {
				for line := 0; line < linesPerROI; line++ {
					fmt.Fprintf(&b, "%v\n", lineTimeUS(trial, cycle, roi, line))
				}
			}
		}
		b.WriteString("0\n0\n")
	}
	return writeFixture(t, "Single cycle relative times_HW.txt", b.String())
}

const miniscanHeaderV231 = `[LOGIN]
Software Version = "2.3.1"

[IMAGING MODES]
Volume Imaging = FALSE
Functional Imaging = TRUE

[FUNCTIONAL IMAGING]
Imaging Mode = "miniscan"
`

// v231Reader builds a classic ROI reader loaded with 4 ROIs of 5 lines and
// 6 pixels each.
func v231Reader(t *testing.T) rois.Reader {
	t.Helper()
	h, err := header.Resolve(writeFixture(t, "Experiment Header.ini", miniscanHeaderV231))
	if err != nil {
		t.Fatalf("failed to resolve header: %v", err)
	}
	reader, err := rois.GetReader(h)
	if err != nil {
		t.Fatalf("GetReader failed: %v", err)
	}

	var b strings.Builder
	b.WriteString("ROI index\tPixels in ROI\tX start\tY start\tZ start\tX stop\tY stop\tZ stop\tAngle (deg)\n")
	for i := 0; i < numROIs; i++ {
		fmt.Fprintf(&b, "%d\t30\t0\t0\t-10\t%d\t%d\t-10\t0\n", i+1, pixelsPerLine, linesPerROI)
	}
	if _, err := reader.ReadTable(writeFixture(t, "ROI.dat", b.String())); err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	return reader
}

func TestV231TensorShapeAndValues(t *testing.T) {
	tm, err := timings.NewV231(v231TimingFile(t), v231Reader(t), dwellTime, cyclesPerTrial, numTrials)
	if err != nil {
		t.Fatalf("NewV231 failed: %v", err)
	}
	if len(tm.PixelTimeOffsets) != numROIs {
		t.Fatalf("Expected %d tensors, got %d", numROIs, len(tm.PixelTimeOffsets))
	}

	for roi := 0; roi < numROIs; roi++ {
		tensor := &tm.PixelTimeOffsets[roi]
		if tensor.Cycles != numTrials*cyclesPerTrial || tensor.Lines != linesPerROI || tensor.Pixels != pixelsPerLine {
			t.Errorf("ROI %d: expected shape (6,5,6), got (%d,%d,%d)",
				roi, tensor.Cycles, tensor.Lines, tensor.Pixels)
		}

		// First cycle, first line: the literal input value for this ROI.
		if want := lineTimeUS(0, 0, roi, 0) / 1e6; tensor.At(0, 0, 0) != want {
			t.Errorf("ROI %d: expected first offset %v, got %v", roi, want, tensor.At(0, 0, 0))
		}
		// First cycle, last line.
		if want := lineTimeUS(0, 0, roi, linesPerROI-1) / 1e6; tensor.At(0, linesPerROI-1, 0) != want {
			t.Errorf("ROI %d: expected last-line offset %v, got %v",
				roi, want, tensor.At(0, linesPerROI-1, 0))
		}
		// Last cycle overall (trial 2, cycle 3), first line.
		last := tensor.Cycles - 1
		if want := lineTimeUS(1, cyclesPerTrial-1, roi, 0) / 1e6; tensor.At(last, 0, 0) != want {
			t.Errorf("ROI %d: expected last-cycle offset %v, got %v", roi, want, tensor.At(last, 0, 0))
		}
	}
}

func TestV231PixelAxisBroadcast(t *testing.T) {
	tm, err := timings.NewV231(v231TimingFile(t), v231Reader(t), dwellTime, cyclesPerTrial, numTrials)
	if err != nil {
		t.Fatalf("NewV231 failed: %v", err)
	}
	tensor := &tm.PixelTimeOffsets[2]
	start := tensor.At(0, 0, 0)
	for p := 0; p < pixelsPerLine; p++ {
		if want := start + float64(p)*dwellTime; tensor.At(0, 0, p) != want {
			t.Errorf("Pixel %d: expected %v, got %v", p, want, tensor.At(0, 0, p))
		}
	}

	// Monotonically non-decreasing along lines and pixels within a cycle.
	for l := 1; l < tensor.Lines; l++ {
		if tensor.At(0, l, 0) < tensor.At(0, l-1, tensor.Pixels-1) {
			t.Errorf("Line %d starts before line %d ends", l, l-1)
		}
	}
}

func TestV231CycleTimeIsMeanOfTrialSamples(t *testing.T) {
	tm, err := timings.NewV231(v231TimingFile(t), v231Reader(t), dwellTime, cyclesPerTrial, numTrials)
	if err != nil {
		t.Fatalf("NewV231 failed: %v", err)
	}

	// The designated sample is the first cycle's last line of the last
	// ROI, averaged across trials (about 1300.4us and 1200.4us here).
	sample1 := lineTimeUS(0, 0, numROIs-1, linesPerROI-1) / 1e6
	sample2 := lineTimeUS(1, 0, numROIs-1, linesPerROI-1) / 1e6
	if want := (sample1 + sample2) / 2; tm.CycleTime != want {
		t.Errorf("Expected cycle time %v, got %v", want, tm.CycleTime)
	}
}

func TestV231CycleTimeSingleTrial(t *testing.T) {
	// With a single trial the estimate is that trial's own sample: more
	// trials only change the denominator of the mean, not the samples.
	var b strings.Builder
	b.WriteString("Image Time [us]\n")
	for cycle := 0; cycle < cyclesPerTrial; cycle++ {
		for roi := 0; roi < numROIs; roi++ {
			for line := 0; line < linesPerROI; line++ {
				fmt.Fprintf(&b, "%v\n", lineTimeUS(0, cycle, roi, line))
			}
		}
	}
	path := writeFixture(t, "Single cycle relative times_HW.txt", b.String())
	tm, err := timings.NewV231(path, v231Reader(t), dwellTime, cyclesPerTrial, 1)
	if err != nil {
		t.Fatalf("NewV231 failed: %v", err)
	}
	if want := lineTimeUS(0, 0, numROIs-1, linesPerROI-1) / 1e6; tm.CycleTime != want {
		t.Errorf("Expected cycle time %v, got %v", want, tm.CycleTime)
	}
}

func TestV231RowCountMismatch(t *testing.T) {
	path := writeFixture(t, "Single cycle relative times_HW.txt", "Image Time [us]\n100\n200\n")
	if _, err := timings.NewV231(path, v231Reader(t), dwellTime, cyclesPerTrial, numTrials); err == nil {
		t.Errorf("Expected error for truncated timing file")
	}
}

const pre2018Header = `[LOGIN]
User = "Old User"

[GLOBAL PARAMETERS]
number of poi = 0
number of miniscans = 2
`

func pre2018Reader(t *testing.T) rois.Reader {
	t.Helper()
	h, err := header.Resolve(writeFixture(t, "Experiment Header.ini", pre2018Header))
	if err != nil {
		t.Fatalf("failed to resolve header: %v", err)
	}
	reader, err := rois.GetReader(h)
	if err != nil {
		t.Fatalf("GetReader failed: %v", err)
	}
	// 2 ROIs of 4 lines x 10 pixels.
	table := "ROI index\tPixels in ROI\tX start\tY start\tZ start\tX stop\tY stop\tZ stop\tAngle (deg)\n" +
		"1\t40\t0\t0\t-10\t10\t4\t-10\t0\n" +
		"2\t40\t0\t0\t-10\t10\t4\t-10\t0\n"
	if _, err := reader.ReadTable(writeFixture(t, "ROI.dat", table)); err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	return reader
}

func pre2018TimingFile(t *testing.T) string {
	var b strings.Builder
	for roi := 0; roi < 2; roi++ {
		for line := 0; line < 4; line++ {
			fmt.Fprintf(&b, "%v\t12345\n", 400+400*roi+100*line)
		}
	}
	return writeFixture(t, "Single cycle relative times.txt", b.String())
}

func TestPre2018TensorAndCycleTime(t *testing.T) {
	tm, err := timings.NewPre2018(pre2018TimingFile(t), pre2018Reader(t), dwellTime)
	if err != nil {
		t.Fatalf("NewPre2018 failed: %v", err)
	}

	// The cycle time is read directly from the second column.
	if want := 12345.0 / 1e6; tm.CycleTime != want {
		t.Errorf("Expected cycle time %v, got %v", want, tm.CycleTime)
	}
	if len(tm.PixelTimeOffsets) != 2 {
		t.Fatalf("Expected 2 tensors, got %d", len(tm.PixelTimeOffsets))
	}
	for roi := 0; roi < 2; roi++ {
		tensor := &tm.PixelTimeOffsets[roi]
		if tensor.Cycles != 1 || tensor.Lines != 4 || tensor.Pixels != 10 {
			t.Errorf("ROI %d: expected shape (1,4,10), got (%d,%d,%d)",
				roi, tensor.Cycles, tensor.Lines, tensor.Pixels)
		}
		if want := float64(400+400*roi) / 1e6; tensor.At(0, 0, 0) != want {
			t.Errorf("ROI %d: expected first offset %v, got %v", roi, want, tensor.At(0, 0, 0))
		}
		if want := float64(700+400*roi) / 1e6; tensor.At(0, 3, 0) != want {
			t.Errorf("ROI %d: expected last row offset %v, got %v", roi, want, tensor.At(0, 3, 0))
		}
		if want := tensor.At(0, 0, 0) + 3*dwellTime; tensor.At(0, 0, 3) != want {
			t.Errorf("ROI %d: expected pixel 3 offset %v, got %v", roi, want, tensor.At(0, 0, 3))
		}
	}
}

func TestPre2018TruncatedFile(t *testing.T) {
	path := writeFixture(t, "Single cycle relative times.txt", "400\t12345\n500\t12345\n")
	if _, err := timings.NewPre2018(path, pre2018Reader(t), dwellTime); err == nil {
		t.Errorf("Expected error when timing rows cover fewer lines than the ROI table needs")
	}
}
