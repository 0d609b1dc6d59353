package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/alumni-portal-client/pkg/client"
	"github.com/Sternrassler/alumni-portal-client/pkg/query"
)

// Query key resources.
const (
	ResourceImages     = "galleryImages"
	ResourceCategories = "galleryCategories"
	ResourceTags       = "galleryTags"
)

const (
	imagesPath     = "/gallery/images/"
	categoriesPath = "/gallery/categories/"
	tagsPath       = "/gallery/tags/"
)

// API is the part of the request client the service needs.
type API interface {
	Do(ctx context.Context, r client.Request) ([]byte, error)
}

// Service exposes the gallery queries. All of them are public.
type Service struct {
	api    API
	cache  *query.Client
	logger zerolog.Logger
}

// NewService creates a gallery service.
func NewService(api API, cache *query.Client, logger zerolog.Logger) *Service {
	return &Service{
		api:    api,
		cache:  cache,
		logger: logger.With().Str("component", "gallery").Logger(),
	}
}

// ImagesKey is the cache key of the image listing for f.
func ImagesKey(f Filter) query.Key {
	f = f.Normalize()
	return query.NewKey(ResourceImages, "category", f.Category, "tag", f.Tag, "search", f.Search)
}

// CategoriesKey is the cache key of the category list.
func CategoriesKey() query.Key { return query.NewKey(ResourceCategories) }

// TagsKey is the cache key of the featured tags.
func TagsKey() query.Key { return query.NewKey(ResourceTags) }

func options[T any]() query.Options {
	return query.Options{
		Enabled:         true,
		StaleTime:       5 * time.Minute,
		Retry:           1,
		ErrorRetryAfter: time.Minute,
		Decode: func(data []byte) (any, error) {
			var v []T
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

func listFetcher[T any](api API, path string, key query.Key) query.Fetcher {
	return func(ctx context.Context) (any, error) {
		body, err := api.Do(ctx, client.Request{
			Method: http.MethodGet,
			Path:   path,
			Query:  key.Values(),
		})
		if err != nil {
			return nil, err
		}
		return client.DecodeList[T](body)
	}
}

// Images returns the image listing without blocking.
func (s *Service) Images(ctx context.Context, f Filter) query.Result[[]Image] {
	key := ImagesKey(f)
	return query.As[[]Image](s.cache.Query(ctx, key, listFetcher[Image](s.api, imagesPath, key), options[Image]()))
}

// LoadImages waits for the image listing.
func (s *Service) LoadImages(ctx context.Context, f Filter) (query.Result[[]Image], error) {
	key := ImagesKey(f)
	snap, err := s.cache.Fetch(ctx, key, listFetcher[Image](s.api, imagesPath, key), options[Image]())
	return query.As[[]Image](snap), err
}

// Categories returns the categories without blocking.
func (s *Service) Categories(ctx context.Context) query.Result[[]Category] {
	key := CategoriesKey()
	return query.As[[]Category](s.cache.Query(ctx, key, listFetcher[Category](s.api, categoriesPath, key), options[Category]()))
}

// LoadCategories waits for the categories.
func (s *Service) LoadCategories(ctx context.Context) (query.Result[[]Category], error) {
	key := CategoriesKey()
	snap, err := s.cache.Fetch(ctx, key, listFetcher[Category](s.api, categoriesPath, key), options[Category]())
	return query.As[[]Category](snap), err
}

// Tags returns the featured tags without blocking.
func (s *Service) Tags(ctx context.Context) query.Result[[]string] {
	key := TagsKey()
	return query.As[[]string](s.cache.Query(ctx, key, listFetcher[string](s.api, tagsPath, key), options[string]()))
}

// LoadTags waits for the featured tags.
func (s *Service) LoadTags(ctx context.Context) (query.Result[[]string], error) {
	key := TagsKey()
	snap, err := s.cache.Fetch(ctx, key, listFetcher[string](s.api, tagsPath, key), options[string]())
	return query.As[[]string](snap), err
}

// LoadPage loads images, categories and tags concurrently. The first
// failure is returned; whatever did load is still in the page.
func (s *Service) LoadPage(ctx context.Context, f Filter) (*Page, error) {
	page := &Page{Filter: f.Normalize()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.LoadImages(gctx, f)
		if err != nil {
			return fmt.Errorf("load images: %w", err)
		}
		page.Images = res.Data
		return nil
	})
	g.Go(func() error {
		res, err := s.LoadCategories(gctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		page.Categories = res.Data
		return nil
	})
	g.Go(func() error {
		res, err := s.LoadTags(gctx)
		if err != nil {
			return fmt.Errorf("load tags: %w", err)
		}
		page.Tags = res.Data
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).Msg("Gallery page load failed")
		return page, err
	}
	return page, nil
}

// Refetch invalidates every gallery query and reloads the page.
func (s *Service) Refetch(ctx context.Context, f Filter) (*Page, error) {
	s.cache.Invalidate(
		query.MatchResource(ResourceImages),
		query.MatchResource(ResourceCategories),
		query.MatchResource(ResourceTags),
	)
	return s.LoadPage(ctx, f)
}
