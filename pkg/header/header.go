package header

import (
	"errors"
	"fmt"

	"labview2nwb/internal/models"
)

// Version identifies the schema generation of the acquisition software that
// wrote a header file. It is a closed set: unknown version strings are a
// hard failure at resolve time.
type Version int

const (
	// VersionPre2018 is the original setup, which did not record a
	// software version in the header.
	VersionPre2018 Version = iota + 1

	// Version231 is LabView 2.3.1.
	Version231

	// Version300 is LabView 3.0.0, which added optional firmware metadata
	// and variable-size ROI support.
	Version300
)

// String returns the version label as it appears in header files.
func (v Version) String() string {
	switch v {
	case VersionPre2018:
		return "pre-2018 (original)"
	case Version231:
		return "2.3.1"
	case Version300:
		return "3.0.0"
	}
	return fmt.Sprintf("Version(%d)", int(v))
}

// Sentinel errors distinguishing the failure modes callers react to
// differently: an unknown schema aborts an import, while a header variant
// that simply has no trial-time section tells the caller to fall back to
// signal-based trial detection.
var (
	// ErrUnsupportedVersion reports a version string this package does
	// not know how to read.
	ErrUnsupportedVersion = errors.New("unsupported LabView version")

	// ErrNotImplemented reports an operation the resolved header
	// generation cannot support, such as trial-time extraction from a
	// pre-2018 header.
	ErrNotImplemented = errors.New("not implemented for this header version")
)

// Header is the uniform view over a parsed header file, implemented by one
// variant per schema generation.
type Header interface {
	// Version reports which schema generation wrote the header.
	Version() Version

	// ImagingMode reports the scanning configuration, determined once at
	// resolve time.
	ImagingMode() models.ImagingMode

	// ImagingInformation reads the imaging parameters from the
	// generation-specific section and key names.
	ImagingInformation() (*models.ImagingInformation, error)

	// TrialTimes extracts per-trial start/stop times from the header.
	// Headers written before 2018 have no trial-time section; they
	// return ErrNotImplemented and callers must detect trials from the
	// speed sensor signal instead.
	TrialTimes() ([]models.TrialInterval, error)

	// RawFields returns the header fields exactly as read from the file,
	// in file order, for provenance storage.
	RawFields() []RawField

	// Section gives access to a raw parsed section, for callers that
	// need generation-specific fields directly.
	Section(name string) *Section
}

// Resolve parses the header file at path and returns the model matching its
// schema generation. The generation is probed from the "Software Version"
// key of the LOGIN section; its absence means the original pre-2018 setup,
// and an unrecognised value is an ErrUnsupportedVersion failure.
func Resolve(path string) (Header, error) {
	doc, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	version, ok := doc.Section("LOGIN").String("Software Version")
	if !ok {
		return newPre2018Header(doc)
	}
	switch version {
	case "2.3.1":
		return newV231Header(doc)
	case "3.0.0":
		return newV300Header(doc)
	}
	return nil, fmt.Errorf("%w %q", ErrUnsupportedVersion, version)
}

// headerBase carries the behaviour shared by all header variants: access to
// the parsed document and the imaging mode determined at resolve time.
type headerBase struct {
	doc  *Document
	mode models.ImagingMode
}

func (h *headerBase) ImagingMode() models.ImagingMode { return h.mode }
func (h *headerBase) RawFields() []RawField           { return h.doc.Fields }
func (h *headerBase) Section(name string) *Section    { return h.doc.Section(name) }

// imagingInformation reads the imaging parameters out of the given section
// using a generation-specific property name table. Integer parameters are
// recorded as floats in the file and cast after reading.
func imagingInformation(sec *Section, names map[string]string) (*models.ImagingInformation, error) {
	if sec == nil {
		return nil, fmt.Errorf("imaging parameter section missing from header")
	}
	get := func(property string) (float64, error) {
		key := names[property]
		value, ok := sec.Float(key)
		if !ok {
			return 0, fmt.Errorf("imaging parameter %q missing from header", key)
		}
		return value, nil
	}

	info := &models.ImagingInformation{Gains: make(map[string]float64)}
	cycles, err := get("number_of_cycles")
	if err != nil {
		return nil, err
	}
	info.CyclesPerTrial = int(cycles)
	if info.Gains[models.ChannelRed], err = get("gain_red"); err != nil {
		return nil, err
	}
	if info.Gains[models.ChannelGreen], err = get("gain_green"); err != nil {
		return nil, err
	}
	frameSize, err := get("frame_size")
	if err != nil {
		return nil, err
	}
	info.FrameSize = int(frameSize)
	if info.FieldOfView, err = get("field_of_view"); err != nil {
		return nil, err
	}
	miniscans, err := get("number_of_miniscans")
	if err != nil {
		return nil, err
	}
	info.NumberOfMiniscans = int(miniscans)
	if info.DwellTime, err = get("dwell_time"); err != nil {
		return nil, err
	}
	return info, nil
}
