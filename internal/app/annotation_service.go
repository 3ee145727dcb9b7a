package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"dental-captcha/internal/metrics"
	"dental-captcha/internal/model"
	"dental-captcha/internal/repository"
)

type SessionEventPublisher interface {
	PublishSessionEvent(ctx context.Context, event model.SessionEvent) error
}

type AnnotationService struct {
	store      *repository.Store
	publisher  SessionEventPublisher
	statsCache StatsCache
	metrics    *metrics.Metrics
	now        func() time.Time
}

type SubmitAnswerInput struct {
	UserID           uint
	SessionID        uint
	QuestionID       uint
	SelectedImageIDs []uint
	TimeSpent        *float64
}

type AnnotationView struct {
	ID               uint      `json:"id"`
	SessionID        uint      `json:"session_id"`
	QuestionID       uint      `json:"question_id"`
	SelectedImageIDs []uint    `json:"selected_image_ids"`
	IsCorrect        *bool     `json:"is_correct"`
	TimeSpent        *float64  `json:"time_spent"`
	CreatedAt        time.Time `json:"created_at"`
	// SessionCompleted is true only on the submission that completed the session.
	SessionCompleted bool `json:"session_completed,omitempty"`
}

func NewAnnotationService(
	store *repository.Store,
	publisher SessionEventPublisher,
	statsCache StatsCache,
	m *metrics.Metrics,
) *AnnotationService {
	return &AnnotationService{
		store:      store,
		publisher:  publisher,
		statsCache: statsCache,
		metrics:    m,
		now:        time.Now,
	}
}

// SubmitAnswer records one answer for a (session, question) pair. The session
// row is locked first so that the membership checks, the insert, completion and
// the stats upsert all see a consistent session and commit or roll back together.
func (s *AnnotationService) SubmitAnswer(ctx context.Context, input SubmitAnswerInput) (*AnnotationView, error) {
	if input.UserID == 0 || input.SessionID == 0 || input.QuestionID == 0 {
		return nil, ErrInvalidInput
	}

	var (
		annotation *model.Annotation
		completed  bool
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		locked, err := tx.Sessions.Lock(ctx, input.SessionID)
		if err != nil {
			return err
		}
		if !locked {
			return ErrSessionNotFound
		}
		session, err := tx.Sessions.GetByID(ctx, input.SessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrSessionNotFound
		}
		if session.UserID != input.UserID {
			return ErrSessionNotOwned
		}
		if session.IsCompleted {
			return ErrSessionAlreadyCompleted
		}

		bound, err := tx.Sessions.HasQuestion(ctx, input.SessionID, input.QuestionID)
		if err != nil {
			return err
		}
		if !bound {
			return ErrQuestionNotInSession
		}
		answered, err := tx.Annotations.Exists(ctx, input.SessionID, input.QuestionID)
		if err != nil {
			return err
		}
		if answered {
			return ErrQuestionAlreadyAnswered
		}

		boundImages, err := tx.Sessions.BoundImageIDs(ctx, input.SessionID)
		if err != nil {
			return err
		}
		if err := checkSelection(input.SelectedImageIDs, boundImages); err != nil {
			return err
		}

		now := s.now()
		annotation = &model.Annotation{
			SessionID:  input.SessionID,
			QuestionID: input.QuestionID,
			TimeSpent:  input.TimeSpent,
			CreatedAt:  now,
		}
		if err := tx.Annotations.CreateWithImages(ctx, annotation, input.SelectedImageIDs); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrQuestionAlreadyAnswered
			}
			return err
		}

		completed, err = evaluateCompletion(ctx, tx, input.SessionID, now)
		if err != nil {
			return err
		}
		return tx.Stats.IncrementAnnotations(ctx, input.UserID, now)
	})
	if err != nil {
		if reason := rejectionReason(err); reason != "" {
			s.metrics.SubmissionRejected(reason)
		}
		return nil, err
	}

	s.metrics.AnnotationRecorded()
	if s.statsCache != nil {
		if err := s.statsCache.Invalidate(ctx, input.UserID); err != nil {
			slog.WarnContext(ctx, "invalidate stats cache failed", "user_id", input.UserID, "error", err)
		}
	}
	if completed {
		s.metrics.SessionCompleted()
		s.publishCompleted(ctx, input.SessionID, input.UserID)
	}

	selected := make([]uint, len(input.SelectedImageIDs))
	copy(selected, input.SelectedImageIDs)
	return &AnnotationView{
		ID:               annotation.ID,
		SessionID:        annotation.SessionID,
		QuestionID:       annotation.QuestionID,
		SelectedImageIDs: selected,
		IsCorrect:        annotation.IsCorrect,
		TimeSpent:        annotation.TimeSpent,
		CreatedAt:        annotation.CreatedAt,
		SessionCompleted: completed,
	}, nil
}

// checkSelection runs after the session and question checks. Membership is
// tested first so an id outside the session (zero included) reports
// ErrImageNotInSession; a repeated id is ErrInvalidInput.
func checkSelection(selected []uint, bound map[uint]struct{}) error {
	for _, id := range selected {
		if _, ok := bound[id]; !ok {
			return ErrImageNotInSession
		}
	}
	seen := make(map[uint]struct{}, len(selected))
	for _, id := range selected {
		if _, dup := seen[id]; dup {
			return ErrInvalidInput
		}
		seen[id] = struct{}{}
	}
	return nil
}

// evaluateCompletion flips the session to completed once every bound question
// has an annotation. It reports whether this call made the transition.
func evaluateCompletion(ctx context.Context, tx *repository.Store, sessionID uint, at time.Time) (bool, error) {
	boundCount, err := tx.Sessions.CountQuestions(ctx, sessionID)
	if err != nil {
		return false, err
	}
	answeredCount, err := tx.Annotations.CountBySessionID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	if answeredCount < boundCount {
		return false, nil
	}
	return tx.Sessions.MarkCompleted(ctx, sessionID, at)
}

func (s *AnnotationService) publishCompleted(ctx context.Context, sessionID, userID uint) {
	if s.publisher == nil {
		return
	}
	annotations, err := s.store.Annotations.ListBySessionID(ctx, sessionID)
	if err != nil {
		slog.WarnContext(ctx, "load completed session annotations failed", "session_id", sessionID, "error", err)
		return
	}
	ids := make([]uint, len(annotations))
	for i, a := range annotations {
		ids[i] = a.ID
	}
	event := model.SessionEvent{
		Type:        model.EventSessionCompleted,
		SessionID:   sessionID,
		UserID:      userID,
		OccurredAt:  s.now(),
		Annotations: ids,
	}
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "publish session completed failed", "session_id", sessionID, "error", err)
	}
}

// ListMyAnnotations returns every annotation across the user's sessions,
// newest first.
func (s *AnnotationService) ListMyAnnotations(ctx context.Context, userID uint) ([]AnnotationView, error) {
	if userID == 0 {
		return nil, ErrInvalidInput
	}
	annotations, err := s.store.Annotations.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(annotations))
	for i, a := range annotations {
		ids[i] = a.ID
	}
	selected, err := s.store.Annotations.ImageIDsByAnnotationIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]AnnotationView, len(annotations))
	for i, a := range annotations {
		imageIDs := selected[a.ID]
		if imageIDs == nil {
			imageIDs = []uint{}
		}
		views[i] = AnnotationView{
			ID:               a.ID,
			SessionID:        a.SessionID,
			QuestionID:       a.QuestionID,
			SelectedImageIDs: imageIDs,
			IsCorrect:        a.IsCorrect,
			TimeSpent:        a.TimeSpent,
			CreatedAt:        a.CreatedAt,
		}
	}
	return views, nil
}

// ApplyGrade stores a grading result. It only sets is_correct; the derived
// stats fields are owned by the grading side.
func (s *AnnotationService) ApplyGrade(ctx context.Context, result model.GradeResult) error {
	if result.AnnotationID == 0 {
		return ErrInvalidInput
	}
	ok, err := s.store.Annotations.SetGrade(ctx, result.AnnotationID, result.IsCorrect)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAnnotationNotFound
	}
	return nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrSessionNotOwned):
		return "session_not_owned"
	case errors.Is(err, ErrSessionAlreadyCompleted):
		return "session_completed"
	case errors.Is(err, ErrQuestionNotInSession):
		return "question_not_in_session"
	case errors.Is(err, ErrQuestionAlreadyAnswered):
		return "question_answered"
	case errors.Is(err, ErrImageNotInSession):
		return "image_not_in_session"
	default:
		return ""
	}
}
