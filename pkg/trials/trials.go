// Package trials reconstructs trial start/stop times for sessions whose
// header has no explicit trial-time section (pre-2018 setups). It works on
// the relative-time counter of the independently recorded speed sensor
// stream: the counter resets to near zero at the start of every trial and
// once more partway into the short inter-trial gap.
package trials

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"labview2nwb/internal/models"
)

// DetectIntervals finds trial boundaries from the speed stream.
//
// counter holds the per-reading relative time within the current trial, in
// microseconds; timestamps holds the matching absolute times in seconds
// since session start. Sentinel resets are added before the first and after
// the last reading so the opening and closing boundaries are always found.
// Every counter decrease marks a reset, and resets pair up two at a time:
// the hardware emits one at the end of a trial and a second at the start of
// the next, with a short stretch of junk readings in between. A trailing
// unmatched reset is dropped.
//
// The resolved start of each trial is the timestamp of its first reading
// corrected by the counter's own sub-threshold offset at that reading; the
// first start can land marginally below zero when the timestamp origin
// coincides with the first reading rather than the true trial start. When
// the final trial's closing reset was never recorded (acquisition stopped
// early, so only the appended sentinel closes it), the last interval's end
// is marked unresolved for the caller to fill from other evidence.
//
// The two-resets-per-boundary cadence is an assumption about the pre-2018
// hardware, not a documented contract: a dropped sample would shift the
// pairing and silently miscount trials.
func DetectIntervals(counter, timestamps []float64) ([]models.TrialInterval, error) {
	if len(counter) == 0 {
		return nil, fmt.Errorf("empty trial counter signal")
	}
	if len(counter) != len(timestamps) {
		return nil, fmt.Errorf("counter and timestamp lengths differ (%d vs %d)",
			len(counter), len(timestamps))
	}

	// First differences with -1 sentinels prepended and appended.
	deltas := make([]float64, len(counter)+1)
	deltas[0] = -1
	deltas[len(counter)] = -1
	if len(counter) > 1 {
		floats.SubTo(deltas[1:len(counter)], counter[1:], counter[:len(counter)-1])
	}

	var resets []int
	for i, d := range deltas {
		if d < 0 {
			resets = append(resets, i)
		}
	}

	numTrials := len(resets) / 2
	intervals := make([]models.TrialInterval, 0, numTrials)
	for t := 0; t < numTrials; t++ {
		startIdx := resets[2*t]
		// The closing reset opens the next segment; the trial ends one
		// reading earlier.
		endIdx := resets[2*t+1] - 1
		interval := models.TrialInterval{
			// Subtract the counter's own offset to recover the true
			// trial start from the first in-trial reading.
			Start: timestamps[startIdx] - counter[startIdx]*1e-6,
		}
		if resets[2*t+1] == len(counter) {
			// Closed only by the appended sentinel: the recording
			// stopped before the real reset arrived.
			interval.EndUnresolved = true
		} else {
			interval.End = timestamps[endIdx]
		}
		if !interval.EndUnresolved && interval.End <= interval.Start {
			return nil, fmt.Errorf("trial %d has end %g not after start %g",
				t+1, interval.End, interval.Start)
		}
		intervals = append(intervals, interval)
	}
	return intervals, nil
}
