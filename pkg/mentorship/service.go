package mentorship

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/alumni-portal-client/pkg/client"
	"github.com/Sternrassler/alumni-portal-client/pkg/query"
	"github.com/Sternrassler/alumni-portal-client/pkg/session"
)

// Query key resources.
const (
	ResourceMentors  = "mentors"
	ResourceMentor   = "mentor"
	ResourceRequests = "mentorshipRequests"
)

const (
	mentorsPath  = "/mentorship/mentors/"
	requestsPath = "/mentorship/mentorship-requests/"

	queryTimeout    = 10 * time.Second
	mutationTimeout = 15 * time.Second
)

// API is the part of the request client the service needs.
type API interface {
	Do(ctx context.Context, r client.Request) ([]byte, error)
}

// Service exposes the mentorship queries and mutations on top of a
// shared query cache.
type Service struct {
	api    API
	cache  *query.Client
	logger zerolog.Logger
}

// NewService creates a mentorship service.
func NewService(api API, cache *query.Client, logger zerolog.Logger) *Service {
	return &Service{
		api:    api,
		cache:  cache,
		logger: logger.With().Str("component", "mentorship").Logger(),
	}
}

// MentorsKey is the cache key of the directory for filter.
func MentorsKey(f MentorFilter) query.Key {
	return query.NewKey(ResourceMentors, "expertise", f.Expertise, "company", f.Company)
}

// MentorKey is the cache key of one mentor profile as seen by sess.
func MentorKey(sess *session.Session, id int64) query.Key {
	return query.NewKey(ResourceMentor, "id", strconv.FormatInt(id, 10), "user", sess.CacheScope())
}

// RequestsKey is the cache key of the request listing for scope as seen by sess.
func RequestsKey(sess *session.Session, scope RequestScope) query.Key {
	if scope == "" {
		scope = ScopeAll
	}
	return query.NewKey(ResourceRequests, "type", string(scope), "user", sess.CacheScope())
}

func (s *Service) mentorsOptions() query.Options {
	return query.Options{
		Enabled:         true,
		StaleTime:       5 * time.Minute,
		Retry:           1,
		ErrorRetryAfter: time.Minute,
		Decode:          decodeJSON[[]MentorProfile],
	}
}

func (s *Service) mentorOptions(sess *session.Session, id int64) query.Options {
	return query.Options{
		Enabled: session.Enabled(sess) && id > 0,
		Retry:   1,
	}
}

func (s *Service) requestsOptions(sess *session.Session) query.Options {
	return query.Options{
		Enabled:   session.Enabled(sess),
		StaleTime: 2 * time.Minute,
		Retry:     1,
	}
}

func (s *Service) mentorsFetcher(f MentorFilter) query.Fetcher {
	key := MentorsKey(f)
	return func(ctx context.Context) (any, error) {
		body, err := s.api.Do(ctx, client.Request{
			Method:  http.MethodGet,
			Path:    mentorsPath,
			Query:   key.Values(),
			Timeout: queryTimeout,
		})
		if err != nil {
			return nil, err
		}
		return client.DecodeList[MentorProfile](body)
	}
}

func (s *Service) mentorFetcher(sess *session.Session, id int64) query.Fetcher {
	return func(ctx context.Context) (any, error) {
		body, err := s.api.Do(ctx, client.Request{
			Method:  http.MethodGet,
			Path:    fmt.Sprintf("%s%d/", mentorsPath, id),
			Timeout: queryTimeout,
			Token:   sess.Token(),
		})
		if err != nil {
			return nil, err
		}
		var m MentorProfile
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("decode mentor %d: %w", id, err)
		}
		return m, nil
	}
}

func (s *Service) requestsFetcher(sess *session.Session, scope RequestScope) query.Fetcher {
	if scope == "" {
		scope = ScopeAll
	}
	return func(ctx context.Context) (any, error) {
		body, err := s.api.Do(ctx, client.Request{
			Method:  http.MethodGet,
			Path:    requestsPath,
			Query:   map[string][]string{"type": {string(scope)}},
			Timeout: queryTimeout,
			Token:   sess.Token(),
		})
		if err != nil {
			return nil, err
		}
		return client.DecodeList[MentorshipRequest](body)
	}
}

// Mentors returns the directory for filter without blocking, starting a
// fetch when needed.
func (s *Service) Mentors(ctx context.Context, f MentorFilter) query.Result[[]MentorProfile] {
	snap := s.cache.Query(ctx, MentorsKey(f), s.mentorsFetcher(f), s.mentorsOptions())
	return query.As[[]MentorProfile](snap)
}

// LoadMentors waits for the directory for filter.
func (s *Service) LoadMentors(ctx context.Context, f MentorFilter) (query.Result[[]MentorProfile], error) {
	snap, err := s.cache.Fetch(ctx, MentorsKey(f), s.mentorsFetcher(f), s.mentorsOptions())
	return query.As[[]MentorProfile](snap), err
}

// RefetchMentors reloads the directory even when it is fresh.
func (s *Service) RefetchMentors(ctx context.Context, f MentorFilter) (query.Result[[]MentorProfile], error) {
	snap, err := s.cache.Refetch(ctx, MentorsKey(f), s.mentorsFetcher(f), s.mentorsOptions())
	return query.As[[]MentorProfile](snap), err
}

// MentorProfile returns one mentor without blocking. It stays idle
// without a session or a valid id.
func (s *Service) MentorProfile(ctx context.Context, sess *session.Session, id int64) query.Result[MentorProfile] {
	snap := s.cache.Query(ctx, MentorKey(sess, id), s.mentorFetcher(sess, id), s.mentorOptions(sess, id))
	return query.As[MentorProfile](snap)
}

// LoadMentorProfile waits for one mentor.
func (s *Service) LoadMentorProfile(ctx context.Context, sess *session.Session, id int64) (query.Result[MentorProfile], error) {
	snap, err := s.cache.Fetch(ctx, MentorKey(sess, id), s.mentorFetcher(sess, id), s.mentorOptions(sess, id))
	return query.As[MentorProfile](snap), err
}

// MentorshipRequests returns the caller's requests without blocking. It
// stays idle without a session.
func (s *Service) MentorshipRequests(ctx context.Context, sess *session.Session, scope RequestScope) query.Result[[]MentorshipRequest] {
	snap := s.cache.Query(ctx, RequestsKey(sess, scope), s.requestsFetcher(sess, scope), s.requestsOptions(sess))
	return query.As[[]MentorshipRequest](snap)
}

// LoadMentorshipRequests waits for the caller's requests.
func (s *Service) LoadMentorshipRequests(ctx context.Context, sess *session.Session, scope RequestScope) (query.Result[[]MentorshipRequest], error) {
	snap, err := s.cache.Fetch(ctx, RequestsKey(sess, scope), s.requestsFetcher(sess, scope), s.requestsOptions(sess))
	return query.As[[]MentorshipRequest](snap), err
}

// RefetchMentorshipRequests reloads the caller's requests even when fresh.
func (s *Service) RefetchMentorshipRequests(ctx context.Context, sess *session.Session, scope RequestScope) (query.Result[[]MentorshipRequest], error) {
	snap, err := s.cache.Refetch(ctx, RequestsKey(sess, scope), s.requestsFetcher(sess, scope), s.requestsOptions(sess))
	return query.As[[]MentorshipRequest](snap), err
}

// ApplyAsMentor submits a mentor application. Invalid forms fail before
// any network call. On success the directory is invalidated.
func (s *Service) ApplyAsMentor(ctx context.Context, sess *session.Session, app MentorApplication) (*MentorProfile, error) {
	if err := app.Validate(); err != nil {
		return nil, err
	}
	if err := session.Require(sess, "apply as a mentor"); err != nil {
		return nil, err
	}

	result, err := s.cache.Mutate(ctx, func(ctx context.Context) (any, error) {
		body, err := s.api.Do(ctx, client.Request{
			Method:  http.MethodPost,
			Path:    mentorsPath,
			Body:    app,
			Timeout: mutationTimeout,
			Token:   sess.Token(),
		})
		if err != nil {
			return nil, err
		}
		var m MentorProfile
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("decode mentor profile: %w", err)
		}
		return &m, nil
	}, query.MutationOptions{
		Invalidate: invalidate(query.MatchResource(ResourceMentors)),
	})
	if err != nil {
		s.logger.Warn().Err(err).Object("session", sess).Msg("Mentor application failed")
		return nil, fmt.Errorf("apply as mentor: %w", err)
	}
	s.logger.Info().Object("session", sess).Msg("Mentor application submitted")
	return result.(*MentorProfile), nil
}

// CreateMentorshipRequest asks a mentor for mentorship. Without a session
// it fails with an AuthRequiredError before validating or calling the
// backend.
func (s *Service) CreateMentorshipRequest(ctx context.Context, sess *session.Session, in CreateRequestInput) (*MentorshipRequest, error) {
	if err := session.Require(sess, "request mentorship"); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	req, err := s.sendRequest(ctx, sess, client.Request{
		Method: http.MethodPost,
		Path:   requestsPath,
		Body:   in,
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("mentor_id", in.MentorID).Msg("Mentorship request failed")
		return nil, fmt.Errorf("create mentorship request: %w", err)
	}
	return req, nil
}

// UpdateMentorshipRequest applies a partial update to request id.
func (s *Service) UpdateMentorshipRequest(ctx context.Context, sess *session.Session, id int64, in UpdateRequestInput) (*MentorshipRequest, error) {
	if err := session.Require(sess, "update a mentorship"); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	req, err := s.sendRequest(ctx, sess, client.Request{
		Method: http.MethodPut,
		Path:   fmt.Sprintf("%s%d/", requestsPath, id),
		Body:   in,
	})
	if err != nil {
		s.logger.Warn().Err(err).Int64("request_id", id).Msg("Mentorship update failed")
		return nil, fmt.Errorf("update mentorship request %d: %w", id, err)
	}
	return req, nil
}

func (s *Service) sendRequest(ctx context.Context, sess *session.Session, r client.Request) (*MentorshipRequest, error) {
	r.Timeout = mutationTimeout
	r.Token = sess.Token()

	result, err := s.cache.Mutate(ctx, func(ctx context.Context) (any, error) {
		body, err := s.api.Do(ctx, r)
		if err != nil {
			return nil, err
		}
		var req MentorshipRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("decode mentorship request: %w", err)
		}
		return &req, nil
	}, query.MutationOptions{
		Invalidate: invalidate(query.MatchResource(ResourceRequests)),
	})
	if err != nil {
		return nil, err
	}
	return result.(*MentorshipRequest), nil
}

func invalidate(matchers ...query.Matcher) func(any) []query.Matcher {
	return func(any) []query.Matcher { return matchers }
}

func decodeJSON[T any](data []byte) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
