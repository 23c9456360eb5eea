package session

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SpeedSeries holds the mouse speed data acquired alongside imaging. Apart
// from the speed values themselves, its trial-time counter is the signal
// used to detect trial boundaries for sessions whose header has none.
type SpeedSeries struct {
	// Start is the absolute experiment start time: the timestamp of the
	// first reading minus that reading's own trial-time offset.
	Start time.Time

	// Times holds each reading's time in seconds since Start.
	Times []float64

	// TrialCounter holds the microseconds-since-trial-start counter for
	// each reading. It resets at trial boundaries.
	TrialCounter []float64

	// Speed holds the speed readings in rpm (always negative as recorded
	// by the rig).
	Speed []float64
}

// speedTimeLayout parses the day-first date plus microsecond time columns.
const speedTimeLayout = "02/01/2006 15:04:05.000000"

// ReadSpeedFile reads the raw speed data file. Columns are tab-separated:
// date (DD/MM/YYYY), time (HH:MM:SS.UUUUUU), microseconds since trial
// start, speed in rpm, plus a trailing unused column. The date and time
// columns give the global experiment time; the session start is recovered
// by backing the first reading's trial-time offset out of its timestamp.
func ReadSpeedFile(path string) (*SpeedSeries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open speed data file: %v", err)
	}
	defer f.Close()

	series := &SpeedSeries{}
	var stamps []time.Time
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		lineNo++
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 4 {
			return nil, fmt.Errorf("speed data file %s line %d: expected at least 4 columns, got %d",
				path, lineNo, len(fields))
		}
		stamp, err := time.Parse(speedTimeLayout, fields[0]+" "+fields[1])
		if err != nil {
			return nil, fmt.Errorf("speed data file %s line %d: %v", path, lineNo, err)
		}
		counter, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("speed data file %s line %d: %v", path, lineNo, err)
		}
		speed, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("speed data file %s line %d: %v", path, lineNo, err)
		}
		stamps = append(stamps, stamp)
		series.TrialCounter = append(series.TrialCounter, counter)
		series.Speed = append(series.Speed, speed)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read speed data file: %v", err)
	}
	if len(stamps) == 0 {
		return nil, fmt.Errorf("speed data file %s is empty", path)
	}

	series.Start = stamps[0].Add(-time.Duration(series.TrialCounter[0]) * time.Microsecond)
	series.Times = make([]float64, len(stamps))
	for i, stamp := range stamps {
		series.Times[i] = stamp.Sub(series.Start).Seconds()
	}
	return series, nil
}
