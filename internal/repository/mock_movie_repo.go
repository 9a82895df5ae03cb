package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/VasquezCodes/CineMatch-sub000/internal/domain"
)

// MockMovieRepository is an in-memory MovieRepository for unit tests.
// Upsert conflict detection mirrors the tmdb_id unique index.
type MockMovieRepository struct {
	mu     sync.Mutex
	movies map[string]*domain.Movie

	UpsertErr        error
	UpdateDetailsErr error
}

func NewMockMovieRepository() *MockMovieRepository {
	return &MockMovieRepository{movies: make(map[string]*domain.Movie)}
}

func (m *MockMovieRepository) Upsert(_ context.Context, mv *domain.Movie) (bool, error) {
	if m.UpsertErr != nil {
		return false, m.UpsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if mv.TMDBID != nil {
		for _, existing := range m.movies {
			if existing.TMDBID != nil && *existing.TMDBID == *mv.TMDBID {
				existing.Title = mv.Title
				existing.ReleaseYear = mv.ReleaseYear
				existing.Overview = mv.Overview
				if mv.IMDbID != nil {
					existing.IMDbID = mv.IMDbID
				}
				if mv.PosterURL != nil {
					existing.PosterURL = mv.PosterURL
				}
				if mv.BackdropURL != nil {
					existing.BackdropURL = mv.BackdropURL
				}
				existing.SyncStatus = mv.SyncStatus
				existing.UpdatedAt = time.Now().UTC()
				mv.ID = existing.ID
				return false, nil
			}
		}
	}

	clone := *mv
	m.movies[mv.ID] = &clone
	return true, nil
}

func (m *MockMovieRepository) GetByID(_ context.Context, id string) (*domain.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv, ok := m.movies[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *mv
	return &clone, nil
}

func (m *MockMovieRepository) GetByTMDBID(_ context.Context, tmdbID int64) (*domain.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mv := range m.movies {
		if mv.TMDBID != nil && *mv.TMDBID == tmdbID {
			clone := *mv
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockMovieRepository) UpdateDetails(_ context.Context, id string, details *domain.MovieDetails) error {
	if m.UpdateDetailsErr != nil {
		return m.UpdateDetailsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if mv, ok := m.movies[id]; ok {
		mv.Details = details
		mv.SyncStatus = nil
		mv.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MockMovieRepository) SetSyncStatus(_ context.Context, id string, status domain.SyncStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mv, ok := m.movies[id]; ok {
		mv.SyncStatus = &status
		mv.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MockMovieRepository) SetBackdropURL(_ context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mv, ok := m.movies[id]; ok {
		mv.BackdropURL = &url
		mv.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MockMovieRepository) FindMissingBackdrop(_ context.Context, limit int) ([]*domain.Movie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.Movie
	for _, mv := range m.movies {
		if mv.BackdropURL == nil {
			clone := *mv
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockMovieRepository) CountMissingBackdrop(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, mv := range m.movies {
		if mv.BackdropURL == nil {
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored movies. Test helper.
func (m *MockMovieRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.movies)
}
