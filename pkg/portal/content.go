package portal

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var contentYAML []byte

// ErrInvalidContent is returned when the portal content fails to load.
var ErrInvalidContent = errors.New("invalid portal content")

// Group is a headed list of items inside a section.
type Group struct {
	Heading string   `yaml:"heading" json:"heading"`
	Items   []string `yaml:"items" json:"items"`
}

// Section is a collapsible block of a static page.
type Section struct {
	ID       string  `yaml:"id" json:"id"`
	Title    string  `yaml:"title" json:"title"`
	Expanded bool    `yaml:"expanded" json:"expanded"`
	Groups   []Group `yaml:"groups" json:"groups,omitempty"`
}

// EligibilityContent is the prospectus.
type EligibilityContent struct {
	Title          string    `yaml:"title"`
	Subtitle       string    `yaml:"subtitle"`
	ProspectusURL  string    `yaml:"prospectus_url"`
	ProspectusName string    `yaml:"prospectus_name"`
	Sections       []Section `yaml:"sections"`
}

// RoomType is one accommodation option.
type RoomType struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Capacity    string   `yaml:"capacity" json:"capacity"`
	Description string   `yaml:"description" json:"description"`
	Pricing     string   `yaml:"pricing" json:"pricing"`
	Badge       string   `yaml:"badge" json:"badge,omitempty"`
	Features    []string `yaml:"features" json:"features"`
}

// Facility is one shared hostel facility.
type Facility struct {
	ID          string   `yaml:"id" json:"id"`
	Title       string   `yaml:"title" json:"title"`
	Description string   `yaml:"description" json:"description"`
	Timings     []string `yaml:"timings" json:"timings,omitempty"`
	Features    []string `yaml:"features" json:"features"`
}

// RoomsContent is the rooms and facilities page.
type RoomsContent struct {
	Title      string     `yaml:"title"`
	Subtitle   string     `yaml:"subtitle"`
	Sections   []Section  `yaml:"sections"`
	RoomTypes  []RoomType `yaml:"room_types"`
	Facilities []Facility `yaml:"facilities"`
}

// Member is one person on the administration roster.
type Member struct {
	Name        string `yaml:"name" json:"name"`
	Designation string `yaml:"designation" json:"designation"`
	Description string `yaml:"description" json:"description,omitempty"`
	ImageURL    string `yaml:"image_url" json:"image_url"`
	Rank        string `yaml:"rank" json:"rank,omitempty"`
}

// Leadership reports whether the member is shown with a leadership card.
func (m Member) Leadership() bool {
	switch m.Rank {
	case "goc", "oic", "2-oic", "warden":
		return true
	}
	return false
}

// RosterGroup is a group of the administration roster.
type RosterGroup struct {
	ID      string   `yaml:"id" json:"id"`
	Title   string   `yaml:"title" json:"title"`
	Members []Member `yaml:"members" json:"members"`
}

// AdministrationContent is the administration roster page.
type AdministrationContent struct {
	Title    string        `yaml:"title"`
	Subtitle string        `yaml:"subtitle"`
	Groups   []RosterGroup `yaml:"groups"`
}

// Content is all static portal content.
type Content struct {
	Eligibility    EligibilityContent    `yaml:"eligibility"`
	Rooms          RoomsContent          `yaml:"rooms"`
	Administration AdministrationContent `yaml:"administration"`
}

// LoadContent returns the content embedded in the binary.
func LoadContent() (*Content, error) {
	return ParseContent(contentYAML)
}

// ParseContent decodes and checks portal content.
func ParseContent(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Content) validate() error {
	if len(c.Eligibility.Sections) == 0 {
		return fmt.Errorf("%w: no eligibility sections", ErrInvalidContent)
	}
	if err := uniqueIDs("eligibility section", sectionIDs(c.Eligibility.Sections)); err != nil {
		return err
	}
	if err := uniqueIDs("rooms section", sectionIDs(c.Rooms.Sections)); err != nil {
		return err
	}
	groups := make([]string, 0, len(c.Administration.Groups))
	for _, g := range c.Administration.Groups {
		groups = append(groups, g.ID)
	}
	return uniqueIDs("roster group", groups)
}

func sectionIDs(sections []Section) []string {
	ids := make([]string, 0, len(sections))
	for _, s := range sections {
		ids = append(ids, s.ID)
	}
	return ids
}

func uniqueIDs(kind string, ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: %s without id", ErrInvalidContent, kind)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate %s %q", ErrInvalidContent, kind, id)
		}
		seen[id] = true
	}
	return nil
}
