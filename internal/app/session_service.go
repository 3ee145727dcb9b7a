package app

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"dental-captcha/internal/metrics"
	"dental-captcha/internal/model"
	"dental-captcha/internal/repository"
)

const (
	ImagesPerSession       = 4
	MinQuestionsPerSession = 1
	MaxQuestionsPerSession = 5
)

type SessionService struct {
	store      *repository.Store
	catalog    *Catalog
	statsCache StatsCache
	metrics    *metrics.Metrics

	// questionCount picks how many questions the next session gets.
	questionCount func() int
	now           func() time.Time
}

type SessionImageView struct {
	ID       uint   `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"image_url"`
	Order    int    `json:"order"`
}

type SessionQuestionView struct {
	ID    uint   `json:"id"`
	Text  string `json:"question_text"`
	Type  string `json:"question_type"`
	Order int    `json:"order"`
}

type SessionView struct {
	ID          uint                  `json:"id"`
	UserID      uint                  `json:"user_id"`
	IsCompleted bool                  `json:"is_completed"`
	StartedAt   time.Time             `json:"started_at"`
	CompletedAt *time.Time            `json:"completed_at"`
	Images      []SessionImageView    `json:"images"`
	Questions   []SessionQuestionView `json:"questions"`
}

func NewSessionService(
	store *repository.Store,
	catalog *Catalog,
	statsCache StatsCache,
	m *metrics.Metrics,
) *SessionService {
	return &SessionService{
		store:      store,
		catalog:    catalog,
		statsCache: statsCache,
		metrics:    m,
		questionCount: func() int {
			return MinQuestionsPerSession + rand.IntN(MaxQuestionsPerSession-MinQuestionsPerSession+1)
		},
		now: time.Now,
	}
}

// CreateSession draws a fresh image and question set for the user and
// persists the session with its bindings in one transaction. Nothing is
// written when the catalog cannot satisfy the draw.
func (s *SessionService) CreateSession(ctx context.Context, userID uint) (*SessionView, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}

	questionCount := s.questionCount()
	if questionCount < MinQuestionsPerSession || questionCount > MaxQuestionsPerSession {
		questionCount = MinQuestionsPerSession
	}

	var (
		images    []model.Image
		questions []model.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		images, err = s.catalog.SampleImages(gctx, ImagesPerSession)
		return err
	})
	g.Go(func() error {
		var err error
		questions, err = s.catalog.SampleActiveQuestions(gctx, questionCount)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	session := &model.Session{
		UserID:    userID,
		StartedAt: s.now(),
	}
	imageBindings := make([]model.SessionImage, len(images))
	for i, img := range images {
		imageBindings[i] = model.SessionImage{ImageID: img.ID, ImageOrder: i + 1}
	}
	questionBindings := make([]model.SessionQuestion, len(questions))
	for i, q := range questions {
		questionBindings[i] = model.SessionQuestion{QuestionID: q.ID, QuestionOrder: i + 1}
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		return tx.Sessions.CreateWithBindings(ctx, session, imageBindings, questionBindings)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SessionCreated(len(questions))
	return buildSessionView(session, images, questions), nil
}

func (s *SessionService) GetSession(ctx context.Context, userID, sessionID uint) (*SessionView, error) {
	if userID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	session, err := s.ownedSession(ctx, s.store, userID, sessionID)
	if err != nil {
		return nil, err
	}

	imageBindings, err := s.store.Sessions.ListImageBindings(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	questionBindings, err := s.store.Sessions.ListQuestionBindings(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	imageIDs := make([]uint, len(imageBindings))
	for i, b := range imageBindings {
		imageIDs[i] = b.ImageID
	}
	questionIDs := make([]uint, len(questionBindings))
	for i, b := range questionBindings {
		questionIDs[i] = b.QuestionID
	}
	imagesByID, err := s.store.Images.GetByIDs(ctx, imageIDs)
	if err != nil {
		return nil, err
	}
	questionsByID, err := s.store.Questions.GetByIDs(ctx, questionIDs)
	if err != nil {
		return nil, err
	}

	images := make([]model.Image, 0, len(imageBindings))
	for _, b := range imageBindings {
		images = append(images, imagesByID[b.ImageID])
	}
	questions := make([]model.Question, 0, len(questionBindings))
	for _, b := range questionBindings {
		questions = append(questions, questionsByID[b.QuestionID])
	}
	return buildSessionView(session, images, questions), nil
}

// ListSessions returns the user's sessions without bindings, newest first.
func (s *SessionService) ListSessions(ctx context.Context, userID uint) ([]model.Session, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	return s.store.Sessions.ListByUserID(ctx, userID)
}

// DeleteSession removes the session with its bindings and annotations and
// takes the removed annotations back out of the owner's stats.
func (s *SessionService) DeleteSession(ctx context.Context, userID, sessionID uint) error {
	if userID == 0 || sessionID == 0 {
		return ErrInvalidInput
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		locked, err := tx.Sessions.Lock(ctx, sessionID)
		if err != nil {
			return err
		}
		if !locked {
			return ErrSessionNotFound
		}
		if _, err := s.ownedSession(ctx, tx, userID, sessionID); err != nil {
			return err
		}

		removed, err := tx.Annotations.CountBySessionID(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := tx.Sessions.DeleteCascade(ctx, sessionID); err != nil {
			return err
		}
		return tx.Stats.SubtractAnnotations(ctx, userID, removed)
	})
	if err != nil {
		return err
	}

	if s.statsCache != nil {
		if err := s.statsCache.Invalidate(ctx, userID); err != nil {
			slog.WarnContext(ctx, "invalidate stats cache failed", "user_id", userID, "error", err)
		}
	}
	return nil
}

func (s *SessionService) ownedSession(ctx context.Context, store *repository.Store, userID, sessionID uint) (*model.Session, error) {
	session, err := store.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, ErrSessionNotOwned
	}
	return session, nil
}

func buildSessionView(session *model.Session, images []model.Image, questions []model.Question) *SessionView {
	view := &SessionView{
		ID:          session.ID,
		UserID:      session.UserID,
		IsCompleted: session.IsCompleted,
		StartedAt:   session.StartedAt,
		CompletedAt: session.CompletedAt,
		Images:      make([]SessionImageView, len(images)),
		Questions:   make([]SessionQuestionView, len(questions)),
	}
	for i, img := range images {
		view.Images[i] = SessionImageView{
			ID:       img.ID,
			Filename: img.Filename,
			URL:      img.URL,
			Order:    i + 1,
		}
	}
	for i, q := range questions {
		view.Questions[i] = SessionQuestionView{
			ID:    q.ID,
			Text:  q.Text,
			Type:  q.Type,
			Order: i + 1,
		}
	}
	return view
}
