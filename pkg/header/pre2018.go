package header

import (
	"fmt"

	"labview2nwb/internal/models"
)

// pre2018PropertyNames maps canonical imaging parameter names to the key
// names used by the original setup. A fresh map is built for every header
// instance so that no two variants can alias the same table.
func pre2018PropertyNames() map[string]string {
	return map[string]string{
		"frame_size":          "frame size",
		"field_of_view":       "field of view",
		"dwell_time":          "dwelltime (us)",
		"number_of_cycles":    "number of cycles",
		"number_of_miniscans": "number of miniscans",
		"gain_red":            "pmt 1",
		"gain_green":          "pmt 2",
	}
}

// pre2018Header models headers from the original setup. All parameters live
// in the GLOBAL PARAMETERS section, the imaging mode is encoded as two
// mutually exclusive counters, and there is no trial-time section.
type pre2018Header struct {
	headerBase
	names map[string]string
}

func newPre2018Header(doc *Document) (*pre2018Header, error) {
	h := &pre2018Header{
		headerBase: headerBase{doc: doc},
		names:      pre2018PropertyNames(),
	}
	globals := doc.Section("GLOBAL PARAMETERS")
	if pois, _ := globals.Float("number of poi"); pois > 0 {
		h.mode = models.Pointing
	} else if miniscans, _ := globals.Float("number of miniscans"); miniscans > 0 {
		h.mode = models.Miniscan
	} else {
		return nil, fmt.Errorf("unsupported imaging type: numbers of poi and miniscans are zero")
	}
	return h, nil
}

func (h *pre2018Header) Version() Version { return VersionPre2018 }

func (h *pre2018Header) ImagingInformation() (*models.ImagingInformation, error) {
	return imagingInformation(h.doc.Section("GLOBAL PARAMETERS"), h.names)
}

// TrialTimes is unsupported for pre-2018 headers: they have no trial-time
// section. Callers must detect trial boundaries from the speed sensor
// signal instead (see pkg/trials).
func (h *pre2018Header) TrialTimes() ([]models.TrialInterval, error) {
	return nil, fmt.Errorf("%w %s: no trial time section", ErrNotImplemented, h.Version())
}
