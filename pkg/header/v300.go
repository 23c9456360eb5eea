package header

// v300PropertyNames extends the 2.3.1 key names with any renames introduced
// in 3.0.0. Built fresh per header instance.
func v300PropertyNames() map[string]string {
	names := v231PropertyNames()
	// 3.0.0 kept the 2.3.1 imaging parameter keys unchanged.
	return names
}

// v300Header models headers written by LabView 3.0.0. It is structurally a
// 2.3.1 header with optional extra metadata (the AOL firmware tag) and a
// flag enabling variable-size ROIs, which changes how the ROI table must be
// read.
type v300Header struct {
	v231Header
}

func newV300Header(doc *Document) (*v300Header, error) {
	h := &v300Header{
		v231Header: v231Header{
			headerBase: headerBase{doc: doc},
			names:      v300PropertyNames(),
		},
	}
	mode, err := determineFlagMode(doc)
	if err != nil {
		return nil, err
	}
	h.mode = mode
	return h, nil
}

func (h *v300Header) Version() Version { return Version300 }

// FirmwareVersion returns the AOL firmware tag recorded in the LOGIN
// section, or an empty string when the header does not carry one.
func (h *v300Header) FirmwareVersion() string {
	firmware, _ := h.doc.Section("LOGIN").String("AOL Firmware Version")
	return firmware
}

// AllowsVariableROIs reports whether the session was configured with
// per-ROI resolutions, in which case the variable-size ROI table reader
// must be used.
func (h *v300Header) AllowsVariableROIs() bool {
	flag, _ := h.doc.Section("IMAGING MODES").String("Allows Variable Size ROIs?")
	return flag == "TRUE"
}

// VariableROIs reports whether a resolved header enables variable-size
// ROIs. Headers from versions without the flag never do.
func VariableROIs(h Header) bool {
	v300, ok := h.(*v300Header)
	return ok && v300.AllowsVariableROIs()
}
