package portal

import "strings"

// SectionView is a collapsible section as shown.
type SectionView struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Expanded bool    `json:"expanded"`
	Groups   []Group `json:"groups,omitempty"`
}

// EligibilityView is the prospectus page.
type EligibilityView struct {
	Title          string        `json:"title"`
	Subtitle       string        `json:"subtitle"`
	ProspectusURL  string        `json:"prospectus_url"`
	ProspectusName string        `json:"prospectus_name"`
	Search         string        `json:"search"`
	State          ViewState     `json:"state"`
	Notice         *Notice       `json:"notice,omitempty"`
	Sections       []SectionView `json:"sections"`
}

// Eligibility returns the prospectus, narrowed by search. A section whose
// title matches is kept whole; otherwise only the groups with a matching
// heading or item are kept. Sections are collapsed unless expanded opens
// them.
func (p *Pages) Eligibility(search string, expanded Expanded) EligibilityView {
	c := p.content.Eligibility
	view := EligibilityView{
		Title:          c.Title,
		Subtitle:       c.Subtitle,
		ProspectusURL:  c.ProspectusURL,
		ProspectusName: c.ProspectusName,
		Search:         search,
		Sections:       []SectionView{},
	}

	term := strings.ToLower(strings.TrimSpace(search))
	for _, s := range c.Sections {
		groups, ok := matchSection(s, term)
		if !ok {
			continue
		}
		view.Sections = append(view.Sections, SectionView{
			ID:       s.ID,
			Title:    s.Title,
			Expanded: expanded.Is(s.ID, s.Expanded),
			Groups:   groups,
		})
	}

	view.State = StateReady
	if len(view.Sections) == 0 {
		view.State = StateEmpty
		view.Notice = infoNotice("No sections match your search")
	}
	return view
}

func matchSection(s Section, term string) ([]Group, bool) {
	if term == "" || contains(s.Title, term) {
		return s.Groups, true
	}

	var groups []Group
	for _, g := range s.Groups {
		if contains(g.Heading, term) {
			groups = append(groups, g)
			continue
		}
		var items []string
		for _, item := range g.Items {
			if contains(item, term) {
				items = append(items, item)
			}
		}
		if len(items) > 0 {
			groups = append(groups, Group{Heading: g.Heading, Items: items})
		}
	}
	return groups, len(groups) > 0
}

func contains(s, lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

// RoomsView is the rooms and facilities page.
type RoomsView struct {
	Title      string        `json:"title"`
	Subtitle   string        `json:"subtitle"`
	Sections   []SectionView `json:"sections"`
	RoomTypes  []RoomType    `json:"room_types,omitempty"`
	Facilities []Facility    `json:"facilities,omitempty"`
}

// RoomsFacilities returns the rooms page. Both sections start open;
// content of a closed section is left out.
func (p *Pages) RoomsFacilities(expanded Expanded) RoomsView {
	c := p.content.Rooms
	view := RoomsView{
		Title:    c.Title,
		Subtitle: c.Subtitle,
		Sections: make([]SectionView, 0, len(c.Sections)),
	}
	for _, s := range c.Sections {
		open := expanded.Is(s.ID, s.Expanded)
		view.Sections = append(view.Sections, SectionView{ID: s.ID, Title: s.Title, Expanded: open})
		if !open {
			continue
		}
		switch s.ID {
		case "rooms":
			view.RoomTypes = c.RoomTypes
		case "facilities":
			view.Facilities = c.Facilities
		}
	}
	return view
}

// MemberView is a roster entry as shown.
type MemberView struct {
	Member
	Leadership bool `json:"leadership"`
}

// RosterGroupView is a roster group as shown.
type RosterGroupView struct {
	ID      string       `json:"id"`
	Title   string       `json:"title"`
	Members []MemberView `json:"members"`
}

// AdministrationView is the administration roster.
type AdministrationView struct {
	Title    string            `json:"title"`
	Subtitle string            `json:"subtitle"`
	Groups   []RosterGroupView `json:"groups"`
}

// Administration returns the roster.
func (p *Pages) Administration() AdministrationView {
	c := p.content.Administration
	view := AdministrationView{
		Title:    c.Title,
		Subtitle: c.Subtitle,
		Groups:   make([]RosterGroupView, 0, len(c.Groups)),
	}
	for _, g := range c.Groups {
		members := make([]MemberView, 0, len(g.Members))
		for _, m := range g.Members {
			members = append(members, MemberView{Member: m, Leadership: m.Leadership()})
		}
		view.Groups = append(view.Groups, RosterGroupView{ID: g.ID, Title: g.Title, Members: members})
	}
	return view
}
