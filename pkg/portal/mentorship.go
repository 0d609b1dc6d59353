package portal

import (
	"context"
	"errors"
	"strings"

	"github.com/Sternrassler/alumni-portal-client/pkg/mentorship"
	"github.com/Sternrassler/alumni-portal-client/pkg/session"
)

// FeatureCard links to a mentorship sub-page.
type FeatureCard struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Stats       string `json:"stats"`
}

// HubView is the mentorship landing page.
type HubView struct {
	Title    string        `json:"title"`
	Subtitle string        `json:"subtitle"`
	Features []FeatureCard `json:"features"`
}

// MentorshipHub returns the mentorship landing page.
func (p *Pages) MentorshipHub() HubView {
	return HubView{
		Title:    "Mentorship Hub",
		Subtitle: "Connect, Learn, and Grow with VIPS-TC Alumni Network",
		Features: []FeatureCard{
			{
				Title:       "Find Your Mentor",
				Description: "Connect with experienced alumni who can guide your career journey",
				Link:        "/portal/mentorship/mentors",
				Stats:       "Browse available mentors",
			},
			{
				Title:       "My Mentorships",
				Description: "Track your mentorship requests and active relationships",
				Link:        "/portal/mentorship/my-mentorships",
				Stats:       "Follow your requests",
			},
			{
				Title:       "Apply as Mentor",
				Description: "Share your expertise and help guide the next generation",
				Link:        "/portal/mentorship/apply-mentor",
				Stats:       "Help others grow",
			},
		},
	}
}

// MentorCard is one mentor in the directory.
type MentorCard struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"user_id"`
	Name      string   `json:"name"`
	Initials  string   `json:"initials"`
	Position  string   `json:"position"`
	Company   string   `json:"company"`
	Expertise []string `json:"expertise"`
	Rating    float64  `json:"rating"`
	Available bool     `json:"available"`
}

func mentorCard(m mentorship.MentorProfile) MentorCard {
	expertise := m.ExpertiseAreas
	if len(expertise) > 3 {
		expertise = expertise[:3]
	}
	return MentorCard{
		ID:        m.ID,
		UserID:    m.User.ID,
		Name:      m.User.FullName(),
		Initials:  initials(m.User.FirstName, m.User.LastName),
		Position:  m.CurrentPosition,
		Company:   m.CurrentCompany,
		Expertise: expertise,
		Rating:    float64(m.AverageRating),
		Available: m.CanAcceptMentees,
	}
}

func initials(names ...string) string {
	var b strings.Builder
	for _, n := range names {
		for _, r := range strings.TrimSpace(n) {
			b.WriteRune(r)
			break
		}
	}
	return strings.ToUpper(b.String())
}

// DirectoryView is the mentor directory.
type DirectoryView struct {
	Title      string                  `json:"title"`
	Subtitle   string                  `json:"subtitle"`
	State      ViewState               `json:"state"`
	Notice     *Notice                 `json:"notice,omitempty"`
	Filter     mentorship.MentorFilter `json:"filter"`
	Search     string                  `json:"search"`
	Mentors    []MentorCard            `json:"mentors"`
	Total      int                     `json:"total"`
	CanRequest bool                    `json:"can_request"`
}

// MentorDirectory lists mentors. The filter goes to the backend through
// the query key; search narrows the cached list locally.
func (p *Pages) MentorDirectory(ctx context.Context, sess *session.Session, filter mentorship.MentorFilter, search string) (view DirectoryView) {
	view = DirectoryView{
		Title:      "Find Your Mentor",
		Subtitle:   "Connect with experienced VIPS-TC alumni",
		Filter:     filter,
		Search:     search,
		Mentors:    []MentorCard{},
		CanRequest: sess.Authenticated(),
	}
	defer p.recoverPage("mentors", &view.Notice)

	res, err := p.mentorship.LoadMentors(ctx, filter)
	view.State = StateOf(res)
	if view.State == StateError {
		view.Notice = loadFailed("mentors", err)
		return view
	}
	if !res.HasData {
		return view
	}

	view.Total = len(res.Data)
	for _, m := range mentorship.SearchMentors(res.Data, search) {
		view.Mentors = append(view.Mentors, mentorCard(m))
	}
	if len(view.Mentors) == 0 {
		view.State = StateEmpty
		view.Notice = infoNotice("No mentors found")
	}
	if res.Err != nil {
		view.Notice = loadFailed("the latest mentors", res.Err)
	}
	return view
}

// MentorDetailView is one mentor's profile page.
type MentorDetailView struct {
	State         ViewState                 `json:"state"`
	Notice        *Notice                   `json:"notice,omitempty"`
	RequiresLogin bool                      `json:"requires_login"`
	Card          *MentorCard               `json:"card,omitempty"`
	Mentor        *mentorship.MentorProfile `json:"mentor,omitempty"`
}

// MentorDetail shows one mentor. Profiles are only visible to logged-in
// users.
func (p *Pages) MentorDetail(ctx context.Context, sess *session.Session, id int64) (view MentorDetailView) {
	defer p.recoverPage("mentor", &view.Notice)

	if err := session.Require(sess, "view mentor profiles"); err != nil {
		view.RequiresLogin = true
		view.State = StateEmpty
		view.Notice = errorNotice(err, "")
		return view
	}

	res, err := p.mentorship.LoadMentorProfile(ctx, sess, id)
	view.State = ItemStateOf(res)
	switch view.State {
	case StateError:
		view.Notice = loadFailed("mentor profile", err)
	case StateReady:
		card := mentorCard(res.Data)
		view.Card = &card
		view.Mentor = &res.Data
	case StateEmpty:
		view.Notice = infoNotice("Mentor not found")
	}
	return view
}

// RequestMentorship sends the one-click request from the directory.
// mentorUserID is the mentor's user id (MentorCard.UserID).
func (p *Pages) RequestMentorship(ctx context.Context, sess *session.Session, mentorUserID int64) *Notice {
	_, err := p.mentorship.CreateMentorshipRequest(ctx, sess, mentorship.DefaultRequest(mentorUserID))
	switch {
	case err == nil:
		return successNotice("Mentorship request sent!")
	case errors.Is(err, session.ErrAuthRequired):
		return &Notice{Kind: NoticeError, Message: "Please log in to request mentorship", err: err}
	default:
		return errorNotice(err, "Failed to send request")
	}
}

// ApplyFormView describes the mentor application form.
type ApplyFormView struct {
	Title            string                       `json:"title"`
	Defaults         mentorship.MentorApplication `json:"defaults"`
	ExpertiseOptions []string                     `json:"expertise_options"`
	Weekdays         []string                     `json:"weekdays"`
	TimeOptions      []string                     `json:"time_options"`
	RequiresLogin    bool                         `json:"requires_login"`
}

// ApplyMentorForm returns the empty application form.
func (p *Pages) ApplyMentorForm(sess *session.Session) ApplyFormView {
	return ApplyFormView{
		Title:            "Become a Mentor",
		Defaults:         mentorship.NewMentorApplication(),
		ExpertiseOptions: mentorship.ExpertiseOptions,
		Weekdays:         []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
		TimeOptions: []string{
			"Morning (9 AM - 12 PM)",
			"Afternoon (12 PM - 5 PM)",
			"Evening (5 PM - 8 PM)",
			"Flexible",
		},
		RequiresLogin: !sess.Authenticated(),
	}
}

// ApplyResultView is the outcome of submitting the application.
type ApplyResultView struct {
	Submitted   bool              `json:"submitted"`
	Title       string            `json:"title,omitempty"`
	Message     string            `json:"message,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Notice      *Notice           `json:"notice,omitempty"`
}

// ApplyMentor validates and submits the application. Field errors are
// returned before any network call.
func (p *Pages) ApplyMentor(ctx context.Context, sess *session.Session, app mentorship.MentorApplication) (view ApplyResultView) {
	defer p.recoverPage("apply-mentor", &view.Notice)

	_, err := p.mentorship.ApplyAsMentor(ctx, sess, app)
	if err == nil {
		return ApplyResultView{
			Submitted: true,
			Title:     "Application Submitted!",
			Message: "Thank you for applying to become a mentor. Our team will review your " +
				"application and get back to you within 2-3 business days.",
			Notice: successNotice("Application submitted"),
		}
	}

	var verr *mentorship.ValidationError
	if errors.As(err, &verr) {
		view.FieldErrors = verr.Fields
	}
	view.Notice = errorNotice(err, "Failed to submit application")
	return view
}

// Tab is one tab of the my-mentorships page.
type Tab struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Active bool   `json:"active"`
}

var mentorshipTabs = []struct {
	key    string
	label  string
	status mentorship.RequestStatus
}{
	{"all", "All Requests", ""},
	{"pending", "Pending", mentorship.StatusPending},
	{"accepted", "Active", mentorship.StatusAccepted},
	{"completed", "Completed", mentorship.StatusCompleted},
}

// MyMentorshipsView lists the caller's mentorship requests.
type MyMentorshipsView struct {
	Title         string                         `json:"title"`
	Subtitle      string                         `json:"subtitle"`
	State         ViewState                      `json:"state"`
	Notice        *Notice                        `json:"notice,omitempty"`
	RequiresLogin bool                           `json:"requires_login"`
	Tabs          []Tab                          `json:"tabs"`
	Requests      []mentorship.MentorshipRequest `json:"requests"`
}

// MyMentorships shows the caller's requests filtered by tab (all,
// pending, accepted, completed). Unknown tabs fall back to all.
func (p *Pages) MyMentorships(ctx context.Context, sess *session.Session, tab string) (view MyMentorshipsView) {
	view = MyMentorshipsView{
		Title:    "My Mentorships",
		Subtitle: "Track your mentorship requests and active mentoring relationships",
		Requests: []mentorship.MentorshipRequest{},
	}
	defer p.recoverPage("my-mentorships", &view.Notice)

	active := 0
	for i, t := range mentorshipTabs {
		if t.key == tab {
			active = i
		}
	}

	if err := session.Require(sess, "view your mentorships"); err != nil {
		view.RequiresLogin = true
		view.State = StateEmpty
		view.Notice = errorNotice(err, "")
		view.Tabs = buildTabs(active, nil)
		return view
	}

	res, err := p.mentorship.LoadMentorshipRequests(ctx, sess, mentorship.ScopeAll)
	view.State = StateOf(res)
	view.Tabs = buildTabs(active, res.Data)
	if view.State == StateError {
		view.Notice = loadFailed("mentorships", err)
		return view
	}

	view.Requests = append(view.Requests, mentorship.FilterRequests(res.Data, mentorshipTabs[active].status)...)
	if res.HasData && len(view.Requests) == 0 {
		view.State = StateEmpty
	}
	if view.State == StateEmpty {
		view.Notice = infoNotice("No mentorships found")
	}
	return view
}

func buildTabs(active int, reqs []mentorship.MentorshipRequest) []Tab {
	counts := mentorship.CountByStatus(reqs)
	tabs := make([]Tab, 0, len(mentorshipTabs))
	for i, t := range mentorshipTabs {
		count := len(reqs)
		if t.status != "" {
			count = counts[t.status]
		}
		tabs = append(tabs, Tab{Key: t.key, Label: t.label, Count: count, Active: i == active})
	}
	return tabs
}

// UpdateMentorship applies a partial update (accept, reject, progress,
// feedback) and reports the outcome.
func (p *Pages) UpdateMentorship(ctx context.Context, sess *session.Session, id int64, in mentorship.UpdateRequestInput) (*mentorship.MentorshipRequest, *Notice) {
	req, err := p.mentorship.UpdateMentorshipRequest(ctx, sess, id, in)
	if err != nil {
		return nil, errorNotice(err, "Failed to update mentorship")
	}
	return req, successNotice("Mentorship updated")
}
