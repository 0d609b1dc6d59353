package mentorship

import "strings"

// SearchMentors filters mentors locally by name, company, position or
// expertise area. The match is case-insensitive; a blank term keeps all.
func SearchMentors(mentors []MentorProfile, term string) []MentorProfile {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return mentors
	}

	out := make([]MentorProfile, 0, len(mentors))
	for _, m := range mentors {
		if mentorMatches(m, term) {
			out = append(out, m)
		}
	}
	return out
}

func mentorMatches(m MentorProfile, term string) bool {
	fields := []string{m.User.FullName(), m.CurrentCompany, m.CurrentPosition}
	fields = append(fields, m.ExpertiseAreas...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// FilterRequests keeps requests in status; an empty status keeps all.
func FilterRequests(reqs []MentorshipRequest, status RequestStatus) []MentorshipRequest {
	if status == "" {
		return reqs
	}
	out := make([]MentorshipRequest, 0, len(reqs))
	for _, r := range reqs {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

// CountByStatus tallies requests per status.
func CountByStatus(reqs []MentorshipRequest) map[RequestStatus]int {
	counts := make(map[RequestStatus]int)
	for _, r := range reqs {
		counts[r.Status]++
	}
	return counts
}
