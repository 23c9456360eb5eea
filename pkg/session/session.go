// Package session orchestrates the import of one LabView export folder:
// header resolution, speed data, trial boundaries, ROI geometry and pixel
// timing reconstruction, in that order. The assembled Records value is the
// structured input handed to the output container writer.
package session

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"labview2nwb/internal/models"
	"labview2nwb/pkg/header"
	"labview2nwb/pkg/metadata"
	"labview2nwb/pkg/rois"
	"labview2nwb/pkg/timings"
	"labview2nwb/pkg/trials"
)

// File names within a LabView export folder.
const (
	headerFileName    = "Experiment Header.ini"
	roiFileName       = "ROI.dat"
	zplaneFileName    = "Zplane_Pockels_Values.dat"
	speedFileName     = "Speed_Data/Speed data 001.txt"
	timingFileNamePre = "Single cycle relative times.txt"
	timingFileNameHW  = "Single cycle relative times_HW.txt"
)

// Records is everything the import engine extracts from one session,
// assembled once and read-only afterwards. It is the hand-off surface to
// the container writer.
type Records struct {
	// SessionID is the folder-derived session identifier.
	SessionID string

	// Version is the schema generation that produced the export.
	Version header.Version

	// Mode is the resolved imaging mode.
	Mode models.ImagingMode

	// HeaderFields is the raw header verbatim, for provenance storage.
	HeaderFields []header.RawField

	// Imaging holds the normalised imaging parameters.
	Imaging *models.ImagingInformation

	// Context is the experimenter/session metadata resolved for the
	// LabView user named in the header; nil when importing without a
	// metadata configuration.
	Context *metadata.SessionContext

	// Trials holds the resolved trial intervals, in acquisition order.
	Trials []models.TrialInterval

	// Rois holds the decoded ROI table, in file order.
	Rois []rois.Record

	// ReferenceFrames names the spatial reference frame of each ROI,
	// parallel to Rois.
	ReferenceFrames []string

	// Timings holds the per-ROI pixel time offset tensors and the cycle
	// time.
	Timings *timings.Timings

	// ZPlanes is the Pockels calibration table for the reference stack.
	ZPlanes []ZPlane

	// Speed is the raw speed sensor series.
	Speed *SpeedSeries
}

// Importer runs the import pipeline for one export folder. The zero value
// is not usable; set Folder before calling Import.
type Importer struct {
	// Folder is the LabView export folder to import.
	Folder string

	// Meta optionally supplies experimenter metadata; when nil the
	// records carry no session context.
	Meta *metadata.Metadata

	// Logf receives progress messages; defaults to log.Printf.
	Logf func(format string, args ...any)
}

func (imp *Importer) logf(format string, args ...any) {
	if imp.Logf != nil {
		imp.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (imp *Importer) rel(name string) string {
	return filepath.Join(imp.Folder, filepath.FromSlash(name))
}

// Import runs the full pipeline: header resolution, speed data, trial
// boundary resolution, ROI geometry and pixel timing reconstruction. Each
// step's output is an immutable input to the next; any failure aborts the
// whole import.
func (imp *Importer) Import() (*Records, error) {
	info, err := os.Stat(imp.Folder)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("labview folder %s does not exist", imp.Folder)
	}
	folderName := filepath.Base(imp.Folder)
	rec := &Records{
		// Drop the ' FunctAcq' part of the folder name.
		SessionID: strings.SplitN(folderName, " ", 2)[0],
	}
	imp.logf("importing LabView session %s from %s", rec.SessionID, imp.Folder)

	hdr, err := header.Resolve(imp.rel(headerFileName))
	if err != nil {
		return nil, err
	}
	rec.Version = hdr.Version()
	rec.Mode = hdr.ImagingMode()
	rec.HeaderFields = hdr.RawFields()
	if rec.Imaging, err = hdr.ImagingInformation(); err != nil {
		return nil, err
	}
	if imp.Meta != nil {
		user, _ := hdr.Section("LOGIN").String("User")
		if rec.Context, err = imp.Meta.ForUser(user); err != nil {
			return nil, err
		}
	}

	imp.logf("loading speed data")
	if rec.Speed, err = ReadSpeedFile(imp.rel(speedFileName)); err != nil {
		return nil, err
	}

	imp.logf("resolving trial boundaries")
	if rec.Trials, err = imp.resolveTrials(hdr, rec.Speed); err != nil {
		return nil, err
	}

	imp.logf("reading ROI table")
	reader, err := rois.GetReader(hdr)
	if err != nil {
		return nil, err
	}
	if rec.Rois, err = reader.ReadTable(imp.rel(roiFileName)); err != nil {
		return nil, err
	}
	rec.ReferenceFrames = make([]string, len(rec.Rois))
	for i := range rec.Rois {
		if rec.ReferenceFrames[i], err = reader.ReferenceFrame(i); err != nil {
			return nil, err
		}
	}

	imp.logf("reconstructing pixel timings")
	dwellSeconds := rec.Imaging.DwellTime / 1e6
	if rec.Version == header.VersionPre2018 {
		rec.Timings, err = timings.NewPre2018(imp.rel(timingFileNamePre), reader, dwellSeconds)
	} else {
		rec.Timings, err = timings.NewV231(imp.rel(timingFileNameHW), reader, dwellSeconds,
			rec.Imaging.CyclesPerTrial, len(rec.Trials))
	}
	if err != nil {
		return nil, err
	}

	imp.logf("loading imaging plane calibration")
	if rec.ZPlanes, err = ReadZPlaneTable(imp.rel(zplaneFileName)); err != nil {
		return nil, err
	}

	imp.logf("session %s imported: %d trials, %d ROIs", rec.SessionID, len(rec.Trials), len(rec.Rois))
	return rec, nil
}

// resolveTrials extracts trial intervals from the header when the schema
// generation records them, falling back to reset detection on the speed
// stream's trial counter for pre-2018 sessions. An unresolved final end
// time is filled from the last speed reading, the best independent evidence
// for when acquisition stopped.
func (imp *Importer) resolveTrials(hdr header.Header, speed *SpeedSeries) ([]models.TrialInterval, error) {
	intervals, err := hdr.TrialTimes()
	if errors.Is(err, header.ErrNotImplemented) {
		imp.logf("header has no trial times, detecting from speed data")
		intervals, err = trials.DetectIntervals(speed.TrialCounter, speed.Times)
	}
	if err != nil {
		return nil, err
	}
	if n := len(intervals); n > 0 && intervals[n-1].EndUnresolved {
		intervals[n-1].End = speed.Times[len(speed.Times)-1]
		intervals[n-1].EndUnresolved = false
	}
	return intervals, nil
}
