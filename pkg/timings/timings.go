// Package timings reconstructs per-pixel acquisition-time tensors from the
// raw per-line timing files exported with a session. The file layout and
// the reconstruction algorithm both changed with the acquisition software:
// pre-2018 exports store one cycle's line times per ROI, while 2.3.1 and
// later store a flat column covering every line of every cycle of every
// trial. All returned times are in seconds.
package timings

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"labview2nwb/pkg/rois"
)

// Tensor holds one ROI's acquisition-time offsets relative to trial start,
// as a flat array in (cycle, line, pixel) row-major order. Values are in
// seconds and non-decreasing along the line and pixel axes within a cycle.
type Tensor struct {
	// Data is the offset array, len Cycles*Lines*Pixels.
	Data []float64

	// Cycles is the leading dimension: cycles per trial times trials for
	// 2.3.1+ data, 1 for a pre-2018 single-cycle file.
	Cycles int

	// Lines is the number of scan lines in the ROI.
	Lines int

	// Pixels is the number of pixels per line.
	Pixels int
}

// At returns the offset for (cycle, line, pixel).
func (t *Tensor) At(c, l, p int) float64 {
	return t.Data[(c*t.Lines+l)*t.Pixels+p]
}

// Timings is the reconstructed timing data for a session: one tensor per
// ROI plus the nominal duration of one scan cycle.
type Timings struct {
	// PixelTimeOffsets holds one tensor per ROI, in table order.
	PixelTimeOffsets []Tensor

	// CycleTime is the nominal duration of one scan cycle in seconds.
	CycleTime float64
}

// NewPre2018 reconstructs timing data from a pre-2018 export. The file has
// two unnamed tab-separated columns in microseconds: the relative start
// time of each scan line (one cycle only, ROI-major) and the cycle time,
// which is read directly from the first row. Per-pixel offsets are obtained
// by adding pixelIndex*dwellTime to each line's start time; dwellTime is in
// seconds.
func NewPre2018(relativeTimesPath string, reader rois.Reader, dwellTime float64) (*Timings, error) {
	lineTimes, cycleTimes, err := readColumns(relativeTimesPath, 2)
	if err != nil {
		return nil, err
	}
	if len(cycleTimes) == 0 {
		return nil, fmt.Errorf("timing file %s is empty", relativeTimesPath)
	}

	numROIs := len(reader.Records())
	t := &Timings{
		PixelTimeOffsets: make([]Tensor, 0, numROIs),
		CycleTime:        cycleTimes[0],
	}
	offset := 0
	for i := 0; i < numROIs; i++ {
		lines, pixels, err := reader.LinePixelCounts(i)
		if err != nil {
			return nil, err
		}
		if offset+lines > len(lineTimes) {
			return nil, fmt.Errorf("timing file %s has %d rows, need %d for ROI %d",
				relativeTimesPath, len(lineTimes), offset+lines, i)
		}
		t.PixelTimeOffsets = append(t.PixelTimeOffsets,
			broadcastDwell(lineTimes[offset:offset+lines], 1, lines, pixels, dwellTime))
		offset += lines
	}
	return t, nil
}

// NewV231 reconstructs timing data from a 2.3.1+ export. The file is a
// single named column of per-line times in microseconds covering every line
// of every cycle of every trial, ordered ROI-major within a cycle and
// cycle-major within a trial; zero rows are padding and are dropped.
//
// ROIs need not share a line count, so each ROI's slice of a cycle starts
// at the accumulated line count of the ROIs before it rather than at a
// fixed stride. The cycle time is estimated by averaging, across trials,
// the first cycle's last-line time of the last ROI: the dwell contribution
// of that final line is negligible, and the mean smooths sensor jitter.
func NewV231(relativeTimesPath string, reader rois.Reader, dwellTime float64, cyclesPerTrial, numTrials int) (*Timings, error) {
	lineTimes, _, err := readColumns(relativeTimesPath, 1)
	if err != nil {
		return nil, err
	}
	// Zero rows are padding left by the acquisition hardware.
	times := lineTimes[:0:0]
	for _, v := range lineTimes {
		if v != 0 {
			times = append(times, v)
		}
	}

	numROIs := len(reader.Records())
	lineCounts := make([]int, numROIs)
	pixelCounts := make([]int, numROIs)
	linesPerCycle := 0
	for i := 0; i < numROIs; i++ {
		lines, pixels, err := reader.LinePixelCounts(i)
		if err != nil {
			return nil, err
		}
		lineCounts[i] = lines
		pixelCounts[i] = pixels
		linesPerCycle += lines
	}

	numCycles := cyclesPerTrial * numTrials
	if want := linesPerCycle * numCycles; len(times) != want {
		return nil, fmt.Errorf("timing file %s has %d usable rows, expected %d (%d lines/cycle * %d cycles)",
			relativeTimesPath, len(times), want, linesPerCycle, numCycles)
	}

	t := &Timings{PixelTimeOffsets: make([]Tensor, 0, numROIs)}
	base := 0
	for i := 0; i < numROIs; i++ {
		lines, pixels := lineCounts[i], pixelCounts[i]
		roiTimes := make([]float64, 0, lines*numCycles)
		for c := 0; c < numCycles; c++ {
			start := base + c*linesPerCycle
			roiTimes = append(roiTimes, times[start:start+lines]...)
		}
		t.PixelTimeOffsets = append(t.PixelTimeOffsets,
			broadcastDwell(roiTimes, numCycles, lines, pixels, dwellTime))
		base += lines
	}

	// One sample per trial: the last line of the cycle is the last line
	// of the last ROI.
	samples := make([]float64, numTrials)
	for trial := 0; trial < numTrials; trial++ {
		samples[trial] = times[trial*cyclesPerTrial*linesPerCycle+linesPerCycle-1]
	}
	t.CycleTime = stat.Mean(samples, nil)
	return t, nil
}

// broadcastDwell expands per-line start times into a full (cycle, line,
// pixel) tensor by adding pixelIndex*dwellTime along the pixel axis.
func broadcastDwell(lineTimes []float64, cycles, lines, pixels int, dwellTime float64) Tensor {
	data := make([]float64, 0, cycles*lines*pixels)
	for _, start := range lineTimes {
		for p := 0; p < pixels; p++ {
			data = append(data, start+float64(p)*dwellTime)
		}
	}
	return Tensor{Data: data, Cycles: cycles, Lines: lines, Pixels: pixels}
}

// readColumns reads a tab-separated timing file with the given number of
// numeric columns, scaling every value from microseconds to seconds. The
// scaling happens here, at the read boundary, so downstream arithmetic
// accumulates floating-point error consistently with the rest of the
// pipeline. A leading non-numeric row is treated as the column header.
func readColumns(path string, columns int) (first, second []float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open timing file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNo++
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < columns {
			return nil, nil, fmt.Errorf("timing file %s line %d: expected %d columns, got %d",
				path, lineNo, columns, len(fields))
		}
		v0, err0 := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err0 != nil {
			if len(first) == 0 {
				// Header row naming the columns.
				continue
			}
			return nil, nil, fmt.Errorf("timing file %s line %d: %v", path, lineNo, err0)
		}
		first = append(first, v0/1e6)
		if columns > 1 {
			v1, err1 := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
			if err1 != nil {
				return nil, nil, fmt.Errorf("timing file %s line %d: %v", path, lineNo, err1)
			}
			second = append(second, v1/1e6)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read timing file: %v", err)
	}
	return first, second, nil
}
