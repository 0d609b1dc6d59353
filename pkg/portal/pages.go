// Package portal builds the portal's page views from the mentorship and
// gallery queries and the embedded static content.
//
// Page builders never panic and never return raw errors for failed
// loads: a query that failed is reported through the view's State and an
// error Notice with a retry affordance.
package portal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/alumni-portal-client/pkg/gallery"
	"github.com/Sternrassler/alumni-portal-client/pkg/mentorship"
	"github.com/Sternrassler/alumni-portal-client/pkg/query"
	"github.com/Sternrassler/alumni-portal-client/pkg/session"
)

// PageID names a data-backed page for Retry.
type PageID string

// Data-backed pages.
const (
	PageMentors       PageID = "mentors"
	PageMentor        PageID = "mentor"
	PageMyMentorships PageID = "my-mentorships"
	PageGallery       PageID = "gallery"
)

// Pages builds page views.
type Pages struct {
	cache      *query.Client
	mentorship *mentorship.Service
	gallery    *gallery.Service
	content    *Content
	logger     zerolog.Logger
}

// New creates the page builders on top of a shared query cache.
func New(cache *query.Client, ms *mentorship.Service, gs *gallery.Service, logger zerolog.Logger) (*Pages, error) {
	content, err := LoadContent()
	if err != nil {
		return nil, err
	}
	return &Pages{
		cache:      cache,
		mentorship: ms,
		gallery:    gs,
		content:    content,
		logger:     logger.With().Str("component", "portal").Logger(),
	}, nil
}

// Content returns the static portal content.
func (p *Pages) Content() *Content {
	return p.content
}

// recoverPage turns a panic in a page builder into an error notice.
func (p *Pages) recoverPage(page string, notice **Notice) {
	if r := recover(); r != nil {
		p.logger.Error().
			Str("page", page).
			Str("panic", fmt.Sprint(r)).
			Msg("Page builder panicked")
		*notice = &Notice{Kind: NoticeError, Message: "Something went wrong.", Retry: true}
	}
}

// Retry invalidates the queries behind page so the next build refetches
// them. Identity-bound pages only touch the caller's own entries. It
// returns the number of entries invalidated.
func (p *Pages) Retry(ctx context.Context, sess *session.Session, page PageID) (int, error) {
	var matchers []query.Matcher
	switch page {
	case PageMentors:
		matchers = append(matchers, query.MatchResource(mentorship.ResourceMentors))
	case PageMentor:
		matchers = append(matchers, ownedBy(mentorship.ResourceMentor, sess))
	case PageMyMentorships:
		matchers = append(matchers, ownedBy(mentorship.ResourceRequests, sess))
	case PageGallery:
		matchers = append(matchers,
			query.MatchResource(gallery.ResourceImages),
			query.MatchResource(gallery.ResourceCategories),
			query.MatchResource(gallery.ResourceTags),
		)
	default:
		return 0, fmt.Errorf("unknown page %q", page)
	}

	n := p.cache.Invalidate(matchers...)
	p.logger.Debug().
		Str("page", string(page)).
		Int("invalidated", n).
		Msg("Retry requested")
	return n, nil
}

func ownedBy(resource string, sess *session.Session) query.Matcher {
	user := sess.CacheScope()
	return func(k query.Key) bool {
		return k.Resource == resource && k.Param("user") == user
	}
}
