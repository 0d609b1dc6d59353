// Package mentorship provides the mentorship queries and mutations: the
// mentor directory, mentor applications and mentorship requests.
package mentorship

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RequestStatus is the backend-owned state of a mentorship request.
type RequestStatus string

// Request states as reported by the backend.
const (
	StatusPending   RequestStatus = "pending"
	StatusAccepted  RequestStatus = "accepted"
	StatusRejected  RequestStatus = "rejected"
	StatusCompleted RequestStatus = "completed"
	StatusCancelled RequestStatus = "cancelled"
)

// Communication is a preferred communication channel.
type Communication string

// Communication preferences. VideoCall is what the directory's quick
// request sends.
const (
	CommunicationVideoCalls Communication = "video_calls"
	CommunicationMessaging  Communication = "messaging"
	CommunicationInPerson   Communication = "in_person"
	CommunicationMixed      Communication = "mixed"
	CommunicationVideoCall  Communication = "video_call"
)

// RequestScope selects which side of a mentorship the listing shows.
type RequestScope string

// Request scopes accepted by the listing's "type" parameter.
const (
	ScopeAll    RequestScope = "all"
	ScopeMentee RequestScope = "mentee"
	ScopeMentor RequestScope = "mentor"
)

// Decimal reads DRF decimal fields, which arrive as strings ("4.50")
// or numbers.
type Decimal float64

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = 0
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*d = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("decimal %s: %w", data, err)
	}
	*d = Decimal(f)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(float64(d))
}

// UserSummary is the public part of a user account.
type UserSummary struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// FullName joins first and last name.
func (u UserSummary) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Availability describes when a mentor can meet.
type Availability struct {
	Weekdays      []string `json:"weekdays,omitempty"`
	Weekends      bool     `json:"weekends,omitempty"`
	PreferredTime string   `json:"preferred_time,omitempty"`
}

// MentorProfile is an approved mentor as listed by the backend.
type MentorProfile struct {
	ID                  int64        `json:"id"`
	User                UserSummary  `json:"user"`
	ExpertiseAreas      []string     `json:"expertise_areas"`
	YearsExperience     int          `json:"years_experience"`
	CurrentCompany      string       `json:"current_company"`
	CurrentPosition     string       `json:"current_position"`
	MentoringCapacity   int          `json:"mentoring_capacity"`
	Availability        Availability `json:"availability"`
	Bio                 string       `json:"bio"`
	LinkedInURL         string       `json:"linkedin_url,omitempty"`
	GitHubURL           string       `json:"github_url,omitempty"`
	PortfolioURL        string       `json:"portfolio_url,omitempty"`
	IsApproved          bool         `json:"is_approved"`
	IsActive            bool         `json:"is_active"`
	AverageRating       Decimal      `json:"average_rating"`
	TotalMentorships    int          `json:"total_mentorships"`
	CurrentMenteesCount int          `json:"current_mentees_count"`
	CanAcceptMentees    bool         `json:"can_accept_mentees"`
	CreatedAt           time.Time    `json:"created_at"`
}

// HasExpertise reports whether the mentor lists area (case-insensitive).
func (m MentorProfile) HasExpertise(area string) bool {
	for _, a := range m.ExpertiseAreas {
		if strings.EqualFold(a, area) {
			return true
		}
	}
	return false
}

// MentorApplication is the form submitted to become a mentor.
type MentorApplication struct {
	ExpertiseAreas    []string     `json:"expertise_areas" validate:"min=1,dive,notblank"`
	YearsExperience   int          `json:"years_experience" validate:"gte=1"`
	CurrentCompany    string       `json:"current_company" validate:"notblank"`
	CurrentPosition   string       `json:"current_position" validate:"notblank"`
	MentoringCapacity int          `json:"mentoring_capacity" validate:"gte=0"`
	Availability      Availability `json:"availability"`
	Bio               string       `json:"bio" validate:"notblank,min=50"`
	LinkedInURL       string       `json:"linkedin_url,omitempty" validate:"omitempty,linkedin"`
	GitHubURL         string       `json:"github_url,omitempty" validate:"omitempty,url"`
	PortfolioURL      string       `json:"portfolio_url,omitempty" validate:"omitempty,url"`
}

// NewMentorApplication returns an empty form with the default capacity.
func NewMentorApplication() MentorApplication {
	return MentorApplication{MentoringCapacity: 3}
}

// AddExpertise appends area unless it is blank or already listed.
func (a *MentorApplication) AddExpertise(area string) {
	area = strings.TrimSpace(area)
	if area == "" {
		return
	}
	for _, existing := range a.ExpertiseAreas {
		if existing == area {
			return
		}
	}
	a.ExpertiseAreas = append(a.ExpertiseAreas, area)
}

// RemoveExpertise drops area.
func (a *MentorApplication) RemoveExpertise(area string) {
	kept := a.ExpertiseAreas[:0]
	for _, existing := range a.ExpertiseAreas {
		if existing != area {
			kept = append(kept, existing)
		}
	}
	a.ExpertiseAreas = kept
}

// ExpertiseOptions are the areas offered by the application form.
var ExpertiseOptions = []string{
	"Web Development", "Mobile Development", "Data Science", "Machine Learning",
	"DevOps", "Cloud Computing", "Cybersecurity", "UI/UX Design",
	"Product Management", "Digital Marketing", "Business Development",
	"Entrepreneurship", "Finance", "Consulting",
}

// MentorshipRequest links a mentee to a mentor.
type MentorshipRequest struct {
	ID                     int64         `json:"id"`
	Mentee                 UserSummary   `json:"mentee"`
	Mentor                 UserSummary   `json:"mentor"`
	Goals                  string        `json:"goals"`
	DurationMonths         int           `json:"duration_months"`
	PreferredCommunication Communication `json:"preferred_communication"`
	Status                 RequestStatus `json:"status"`
	RequestedAt            time.Time     `json:"requested_at"`
	RespondedAt            *time.Time    `json:"responded_at"`
	StartedAt              *time.Time    `json:"started_at"`
	CompletedAt            *time.Time    `json:"completed_at"`
	MentorResponse         string        `json:"mentor_response,omitempty"`
	RejectionReason        string        `json:"rejection_reason,omitempty"`
	ProgressPercentage     int           `json:"progress_percentage"`
	MenteeRating           *int          `json:"mentee_rating"`
	MentorRating           *int          `json:"mentor_rating"`
	MenteeFeedback         string        `json:"mentee_feedback,omitempty"`
	MentorFeedback         string        `json:"mentor_feedback,omitempty"`
}

// CreateRequestInput is the body of a new mentorship request. MentorID is
// the mentor's user id.
type CreateRequestInput struct {
	MentorID               int64         `json:"mentor_id" validate:"gt=0"`
	Goals                  string        `json:"goals" validate:"notblank"`
	DurationMonths         int           `json:"duration_months" validate:"min=1,max=12"`
	PreferredCommunication Communication `json:"preferred_communication" validate:"oneof=video_calls messaging in_person mixed video_call"`
}

// DefaultRequest is what the directory sends for a one-click request.
func DefaultRequest(mentorID int64) CreateRequestInput {
	return CreateRequestInput{
		MentorID:               mentorID,
		Goals:                  "I would like to learn from your expertise.",
		DurationMonths:         3,
		PreferredCommunication: CommunicationVideoCall,
	}
}

// UpdateRequestInput is a partial update (accept, reject, progress,
// feedback). Nil fields are left unchanged.
type UpdateRequestInput struct {
	Status             *RequestStatus `json:"status,omitempty" validate:"omitnil,oneof=pending accepted rejected completed cancelled"`
	MentorResponse     *string        `json:"mentor_response,omitempty"`
	RejectionReason    *string        `json:"rejection_reason,omitempty"`
	ProgressPercentage *int           `json:"progress_percentage,omitempty" validate:"omitnil,min=0,max=100"`
	MenteeRating       *int           `json:"mentee_rating,omitempty" validate:"omitnil,min=1,max=5"`
	MentorRating       *int           `json:"mentor_rating,omitempty" validate:"omitnil,min=1,max=5"`
	MenteeFeedback     *string        `json:"mentee_feedback,omitempty"`
	MentorFeedback     *string        `json:"mentor_feedback,omitempty"`
}

func (in UpdateRequestInput) empty() bool {
	return in.Status == nil && in.MentorResponse == nil && in.RejectionReason == nil &&
		in.ProgressPercentage == nil && in.MenteeRating == nil && in.MentorRating == nil &&
		in.MenteeFeedback == nil && in.MentorFeedback == nil
}

// MentorFilter holds the server-side directory filters.
type MentorFilter struct {
	Expertise string `json:"expertise"`
	Company   string `json:"company"`
}
