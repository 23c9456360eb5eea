// Package metadata loads the experimenter and session metadata YAML files
// that accompany imported recordings. A defaults file shipped with the lab
// configuration is overlaid with machine- and user-specific settings, and
// the LabView user recorded in a session header is resolved to a person,
// experiment and session description.
package metadata

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Person describes one experimenter.
type Person struct {
	// Name is the experimenter's full name.
	Name string `yaml:"name"`

	// Email is the contact address.
	Email string `yaml:"email"`

	// Institution is the lab or institute the experimenter belongs to.
	Institution string `yaml:"institution"`
}

// Session holds the per-user defaults applied to imported sessions.
type Session struct {
	// Experiment names the experiment this user's sessions belong to.
	Experiment string `yaml:"experiment"`

	// Description is the free-text session description.
	Description string `yaml:"description"`
}

// Experiment describes one ongoing experiment.
type Experiment struct {
	// Description is the free-text experiment description.
	Description string `yaml:"description"`

	// Protocol is the experimental protocol reference.
	Protocol string `yaml:"protocol"`
}

// Metadata is the merged metadata configuration.
type Metadata struct {
	// People maps LabView user name to experimenter details.
	People map[string]Person `yaml:"people"`

	// Sessions maps LabView user name to that user's session defaults.
	Sessions map[string]Session `yaml:"sessions"`

	// Experiments maps experiment name to its details.
	Experiments map[string]Experiment `yaml:"experiments"`

	// LastSession is the user whose session details should be used when
	// a header names a user with no metadata entry.
	LastSession string `yaml:"last_session"`
}

// SessionContext is the resolved metadata for one imported session.
type SessionContext struct {
	User        Person
	Experiment  Experiment
	Description string
}

// Default returns an empty metadata configuration ready to be overlaid
// with files.
func Default() *Metadata {
	return &Metadata{
		People:      make(map[string]Person),
		Sessions:    make(map[string]Session),
		Experiments: make(map[string]Experiment),
	}
}

// Load reads the given YAML files in order, each overriding entries set by
// the previous ones. Missing optional files can be passed as empty strings.
func Load(paths ...string) (*Metadata, error) {
	m := Default()
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := m.Overlay(path); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Overlay merges a single YAML file into the configuration. Map entries
// replace existing ones key by key, so a user file only needs to list what
// it changes.
func (m *Metadata) Overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read metadata file: %v", err)
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return fmt.Errorf("failed to parse metadata file %s: %v", path, err)
	}
	m.trim()
	return nil
}

// trim strips surrounding whitespace from every string setting, since the
// files are often hand-edited.
func (m *Metadata) trim() {
	for user, p := range m.People {
		p.Name = strings.TrimSpace(p.Name)
		p.Email = strings.TrimSpace(p.Email)
		p.Institution = strings.TrimSpace(p.Institution)
		m.People[user] = p
	}
	for user, s := range m.Sessions {
		s.Experiment = strings.TrimSpace(s.Experiment)
		s.Description = strings.TrimSpace(s.Description)
		m.Sessions[user] = s
	}
	for name, e := range m.Experiments {
		e.Description = strings.TrimSpace(e.Description)
		e.Protocol = strings.TrimSpace(e.Protocol)
		m.Experiments[name] = e
	}
	m.LastSession = strings.TrimSpace(m.LastSession)
}

// ForUser resolves the metadata context for the LabView user recorded in a
// session header. An unknown user falls back to the configured last
// session's user when one is set; a user or experiment with no entry at all
// is a hard error, since imports must not proceed with missing provenance.
func (m *Metadata) ForUser(user string) (*SessionContext, error) {
	if _, ok := m.Sessions[user]; !ok {
		if m.LastSession == "" {
			return nil, fmt.Errorf("no session information found for user %q - please edit the metadata file to include their details", user)
		}
		user = m.LastSession
	}
	person, ok := m.People[user]
	if !ok {
		return nil, fmt.Errorf("no information found for user %q - please edit the metadata file to include their details", user)
	}
	session := m.Sessions[user]
	experiment, ok := m.Experiments[session.Experiment]
	if !ok {
		return nil, fmt.Errorf("experiment %q not found in metadata", session.Experiment)
	}
	return &SessionContext{
		User:        person,
		Experiment:  experiment,
		Description: session.Description,
	}, nil
}
