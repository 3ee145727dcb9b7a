package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one *gorm.DB so a service can run
// several of them inside a single transaction.
type Store struct {
	db *gorm.DB

	Users       *UserRepository
	Questions   *QuestionRepository
	Images      *ImageRepository
	Sessions    *SessionRepository
	Annotations *AnnotationRepository
	Stats       *StatsRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Users:       NewUserRepository(db),
		Questions:   NewQuestionRepository(db),
		Images:      NewImageRepository(db),
		Sessions:    NewSessionRepository(db),
		Annotations: NewAnnotationRepository(db),
		Stats:       NewStatsRepository(db),
	}
}

// Transaction runs fn against a Store bound to one transaction. Any error
// returned by fn rolls back every write made through tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func (s *Store) DB() *gorm.DB {
	return s.db
}
