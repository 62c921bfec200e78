// Package templates holds the alert texts (canned safety messages, titles, email copy, generator prompt)
// with built-in defaults, an optional YAML override file, and hot reload.
package templates

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/project-queyk/queyk-backend/internal/notification/domain"
)

// Contact is an emergency contact listed in alert emails.
type Contact struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

// Canned holds the fallback alert text per severity. "{magnitude}" is substituted.
type Canned struct {
	Minor    string `yaml:"minor"`
	Moderate string `yaml:"moderate"`
	Severe   string `yaml:"severe"`
}

// Templates is one complete set of alert texts. Placeholders in braces are substituted by the helpers below.
type Templates struct {
	Location          string    `yaml:"location"`
	Canned            Canned    `yaml:"canned"`
	PushTitle         string    `yaml:"push_title"`
	EmailSubject      string    `yaml:"email_subject"`
	EmailGreeting     string    `yaml:"email_greeting"`
	EmailIntro        string    `yaml:"email_intro"`
	EmailActions      []string  `yaml:"email_actions"`
	Contacts          []Contact `yaml:"contacts"`
	SystemInstruction string    `yaml:"system_instruction"`
	Prompt            string    `yaml:"prompt"`
	OfflineTitle      string    `yaml:"offline_title"`
	OfflineBody       string    `yaml:"offline_body"`
}

// Default returns the built-in texts.
func Default() Templates {
	return Templates{
		Location: "Immaculada Concepcion College",
		Canned: Canned{
			Minor:    "Estimated magnitude {magnitude} earthquake detected. Seek shelter immediately. Drop, cover, and hold.",
			Moderate: "Estimated magnitude {magnitude} earthquake detected. Drop, cover, and hold on. Stay away from windows and exterior walls.",
			Severe:   "Estimated magnitude {magnitude} earthquake detected. Drop, cover, and hold on. Evacuate to designated safe zones after shaking stops.",
		},
		PushTitle:     "🚨 Earthquake Alert: Magnitude {magnitude}",
		EmailSubject:  "Earthquake Alert: Magnitude {magnitude} Detected",
		EmailGreeting: "Dear Immaculadians,",
		EmailIntro: "Our seismic monitoring system has detected earthquake activity that may affect our campus. " +
			"This automated alert is being sent to ensure the safety of all students, faculty, and staff.",
		EmailActions: []string{
			"Follow the school's earthquake safety protocols",
			"Proceed to designated evacuation areas if instructed",
			"Listen for announcements from school personnel",
			"Stay calm and assist others as needed",
			"Wait for all-clear signals before resuming normal activities",
		},
		Contacts: []Contact{
			{Name: "School Clinic", Phone: "09755721421"},
			{Name: "School Security", Phone: "09569114566"},
			{Name: "Facilities Management", Phone: "09460548474"},
		},
		SystemInstruction: "You are an emergency alert system for a school. Generate concise, clear, and urgent notification text " +
			"similar to mobile earthquake alerts. Always start with 'Estimated magnitude [X] earthquake detected.' " +
			"Do not include 'EARTHQUAKE ALERT' prefix. Keep the tone professional but urgent, and focus only on essential " +
			"safety information. Response should be 1-2 sentences maximum, like a real emergency push notification.",
		Prompt: "An earthquake with magnitude {magnitude} has been detected near {location}. " +
			"Generate an appropriate emergency notification message for the school community.",
		OfflineTitle: "IoT Device Offline",
		OfflineBody: "The seismic monitoring device has not sent data for over {threshold}. " +
			"Last reading: {last_reading}. Please check the device status immediately.",
	}
}

// Validate reports missing texts.
func (t Templates) Validate() error {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("canned.minor", t.Canned.Minor)
	check("canned.moderate", t.Canned.Moderate)
	check("canned.severe", t.Canned.Severe)
	check("push_title", t.PushTitle)
	check("email_subject", t.EmailSubject)
	check("offline_title", t.OfflineTitle)
	check("offline_body", t.OfflineBody)
	if len(missing) > 0 {
		return fmt.Errorf("templates: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

func fill(s string, magnitude float64, location string) string {
	return strings.NewReplacer(
		"{magnitude}", domain.FormatMagnitude(magnitude),
		"{location}", location,
	).Replace(s)
}

// CannedMessage returns the fallback text for magnitude's severity bucket.
func (t Templates) CannedMessage(magnitude float64) string {
	var s string
	switch domain.SeverityFor(magnitude) {
	case domain.SeverityMinor:
		s = t.Canned.Minor
	case domain.SeverityModerate:
		s = t.Canned.Moderate
	default:
		s = t.Canned.Severe
	}
	return fill(s, magnitude, t.Location)
}

// Title returns the push/socket headline for magnitude.
func (t Templates) Title(magnitude float64) string { return fill(t.PushTitle, magnitude, t.Location) }

// Subject returns the email subject for magnitude.
func (t Templates) Subject(magnitude float64) string {
	return fill(t.EmailSubject, magnitude, t.Location)
}

// GeneratorPrompt returns the prompt sent to the text generator for magnitude.
func (t Templates) GeneratorPrompt(magnitude float64) string {
	return fill(t.Prompt, magnitude, t.Location)
}

// Offline returns the title and body of the device-offline alert. lastReading is already formatted.
func (t Templates) Offline(threshold, lastReading string) (title, body string) {
	body = strings.NewReplacer("{threshold}", threshold, "{last_reading}", lastReading).Replace(t.OfflineBody)
	return t.OfflineTitle, body
}

// Load reads a YAML file and overlays it on the defaults; keys absent from the file keep their default.
func Load(path string) (Templates, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Templates{}, fmt.Errorf("templates: read %s: %w", path, err)
	}
	t := Default()
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Templates{}, fmt.Errorf("templates: parse %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return Templates{}, err
	}
	return t, nil
}

// Store holds the active Templates; safe for concurrent use.
type Store struct {
	current atomic.Pointer[Templates]
}

// NewStore returns a Store holding t.
func NewStore(t Templates) *Store {
	s := &Store{}
	s.current.Store(&t)
	return s
}

// Current returns the active templates.
func (s *Store) Current() Templates {
	return *s.current.Load()
}

// Set replaces the active templates if they are valid.
func (s *Store) Set(t Templates) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.current.Store(&t)
	return nil
}

// Open returns a Store loaded from path, or holding the defaults when path is empty.
func Open(path string) (*Store, error) {
	if path == "" {
		return NewStore(Default()), nil
	}
	t, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewStore(t), nil
}

// ErrNoPath is returned by Watch when there is no file to watch.
var ErrNoPath = errors.New("templates: no path to watch")
