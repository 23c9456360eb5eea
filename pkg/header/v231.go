package header

import (
	"fmt"

	"labview2nwb/internal/models"
)

// trialTimesSection is the (misleadingly titled) header section holding the
// paired trial start/stop timestamps in LabView 2.3.1 and later.
const trialTimesSection = "Intertrial FIFO Times"

// v231PropertyNames maps canonical imaging parameter names to the key names
// used by LabView 2.3.1. A fresh map is built per header instance.
func v231PropertyNames() map[string]string {
	return map[string]string{
		"frame_size":          "Frame Size",
		"field_of_view":       "field of view",
		"dwell_time":          "pixel dwell time (us)",
		"number_of_cycles":    "Number of cycles",
		"number_of_miniscans": "Number of miniscans",
		"gain_red":            "pmt 1",
		"gain_green":          "pmt 2",
	}
}

// v231Header models headers written by LabView 2.3.1. The imaging mode is
// encoded as two boolean flags plus a textual sub-mode, the imaging
// parameters live under the section matching the active mode, and trial
// times are stored as paired timestamp rows.
type v231Header struct {
	headerBase
	names map[string]string
}

func newV231Header(doc *Document) (*v231Header, error) {
	h := &v231Header{
		headerBase: headerBase{doc: doc},
		names:      v231PropertyNames(),
	}
	mode, err := determineFlagMode(doc)
	if err != nil {
		return nil, err
	}
	h.mode = mode
	return h, nil
}

// determineFlagMode resolves the imaging mode from the IMAGING MODES flags.
// Exactly one of the volume/functional flags must be TRUE; functional
// imaging is further split into pointing and miniscan by a nested text
// field. Contradictory flags and unknown sub-modes are hard failures.
func determineFlagMode(doc *Document) (models.ImagingMode, error) {
	flags := doc.Section("IMAGING MODES")
	volume, _ := flags.String("Volume Imaging")
	functional, _ := flags.String("Functional Imaging")
	switch {
	case volume == "TRUE" && functional == "TRUE":
		return 0, fmt.Errorf("unsupported imaging type: volume and functional imaging both enabled")
	case volume == "TRUE":
		return models.Volume, nil
	case functional == "TRUE":
		subMode, _ := doc.Section("FUNCTIONAL IMAGING").String("Imaging Mode")
		switch subMode {
		case "pointing":
			return models.Pointing, nil
		case "miniscan", "patch":
			return models.Miniscan, nil
		}
		return 0, fmt.Errorf("unsupported imaging type: unrecognised functional mode %q", subMode)
	}
	return 0, fmt.Errorf("unsupported imaging type: could not determine imaging mode")
}

func (h *v231Header) Version() Version { return Version231 }

// imagingSection returns the section holding the imaging parameters, which
// in 2.3.1 and later depends on the active imaging mode.
func (h *v231Header) imagingSection() *Section {
	name := "FUNCTIONAL IMAGING"
	if h.mode == models.Volume {
		name = "VOLUME IMAGING"
	}
	return h.doc.Section(name)
}

func (h *v231Header) ImagingInformation() (*models.ImagingInformation, error) {
	return imagingInformation(h.imagingSection(), h.names)
}

// TrialTimes reads the paired start/stop timestamp rows from the trial-time
// section. Rows pair up two at a time; if the final pair is incomplete the
// last interval's end is marked unresolved and must be derived from an
// independent signal downstream.
func (h *v231Header) TrialTimes() ([]models.TrialInterval, error) {
	sec := h.doc.Section(trialTimesSection)
	if sec == nil {
		return nil, fmt.Errorf("header has no %q section", trialTimesSection)
	}
	rows := sec.Rows
	intervals := make([]models.TrialInterval, 0, (len(rows)+1)/2)
	for i := 0; i < len(rows); i += 2 {
		interval := models.TrialInterval{Start: rows[i].Value}
		if i+1 < len(rows) {
			interval.End = rows[i+1].Value
		} else {
			interval.EndUnresolved = true
		}
		intervals = append(intervals, interval)
	}
	return intervals, nil
}
