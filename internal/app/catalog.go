package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/stat/sampleuv"

	"dental-captcha/internal/model"
	"dental-captcha/internal/repository"
)

// Catalog is the read side of the image and question pools plus the admin
// import path that fills them.
type Catalog struct {
	store *repository.Store
	src   rand.Source
}

type ImageImport struct {
	Filename string
	URL      string
}

type QuestionImport struct {
	Text string
	Type string
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// NewCatalog uses the global random source when src is nil. A non-nil src
// must be safe for concurrent use if the catalog is shared between goroutines.
func NewCatalog(store *repository.Store, src rand.Source) *Catalog {
	return &Catalog{store: store, src: src}
}

// SampleImages draws n distinct images uniformly at random, in draw order.
func (c *Catalog) SampleImages(ctx context.Context, n int) ([]model.Image, error) {
	ids, err := c.store.Images.ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	picked, err := c.sample(ids, n)
	if err != nil {
		return nil, err
	}
	byID, err := c.store.Images.GetByIDs(ctx, picked)
	if err != nil {
		return nil, err
	}
	images := make([]model.Image, 0, len(picked))
	for _, id := range picked {
		img, ok := byID[id]
		if !ok {
			// deleted between the two reads
			return nil, ErrInsufficientInventory
		}
		images = append(images, img)
	}
	return images, nil
}

// SampleActiveQuestions draws n distinct active questions uniformly at random.
func (c *Catalog) SampleActiveQuestions(ctx context.Context, n int) ([]model.Question, error) {
	ids, err := c.store.Questions.ListActiveIDs(ctx)
	if err != nil {
		return nil, err
	}
	picked, err := c.sample(ids, n)
	if err != nil {
		return nil, err
	}
	byID, err := c.store.Questions.GetByIDs(ctx, picked)
	if err != nil {
		return nil, err
	}
	questions := make([]model.Question, 0, len(picked))
	for _, id := range picked {
		q, ok := byID[id]
		if !ok || !q.Active {
			return nil, ErrInsufficientInventory
		}
		questions = append(questions, q)
	}
	return questions, nil
}

func (c *Catalog) sample(ids []uint, n int) ([]uint, error) {
	if n < 0 {
		return nil, ErrInvalidInput
	}
	if len(ids) < n {
		return nil, ErrInsufficientInventory
	}
	if n == 0 {
		return []uint{}, nil
	}
	positions := make([]int, n)
	sampleuv.WithoutReplacement(positions, len(ids), c.src)

	picked := make([]uint, n)
	for i, pos := range positions {
		picked[i] = ids[pos]
	}
	return picked, nil
}

func (c *Catalog) ListActiveQuestions(ctx context.Context) ([]model.Question, error) {
	return c.store.Questions.ListActive(ctx)
}

// ImportImages adds images to the pool. Filenames already present, or
// repeated within the batch, are skipped.
func (c *Catalog) ImportImages(ctx context.Context, items []ImageImport) (*ImportResult, error) {
	if len(items) == 0 {
		return nil, ErrInvalidInput
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Filename) == "" || strings.TrimSpace(item.URL) == "" {
			return nil, ErrInvalidInput
		}
		names = append(names, strings.TrimSpace(item.Filename))
	}

	result := &ImportResult{}
	err := c.store.Transaction(ctx, func(tx *repository.Store) error {
		existing, err := tx.Images.ExistingFilenames(ctx, names)
		if err != nil {
			return err
		}
		images := make([]model.Image, 0, len(items))
		for _, item := range items {
			name := strings.TrimSpace(item.Filename)
			if _, dup := existing[name]; dup {
				result.Skipped++
				continue
			}
			existing[name] = struct{}{}
			images = append(images, model.Image{
				Filename: name,
				URL:      strings.TrimSpace(item.URL),
			})
		}
		if err := tx.Images.CreateBatch(ctx, images); err != nil {
			return err
		}
		result.Imported = len(images)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import images failed: %w", err)
	}
	return result, nil
}

func (c *Catalog) ImportQuestions(ctx context.Context, items []QuestionImport) (*ImportResult, error) {
	if len(items) == 0 {
		return nil, ErrInvalidInput
	}
	questions := make([]model.Question, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.Text)
		qType := strings.TrimSpace(item.Type)
		if text == "" || qType == "" {
			return nil, ErrInvalidInput
		}
		questions = append(questions, model.Question{Text: text, Type: qType, Active: true})
	}
	if err := c.store.Questions.CreateBatch(ctx, questions); err != nil {
		return nil, err
	}
	return &ImportResult{Imported: len(questions)}, nil
}

// DeactivateQuestion removes a question from future draws. Sessions that
// already bound it keep it.
func (c *Catalog) DeactivateQuestion(ctx context.Context, questionID uint) error {
	if questionID == 0 {
		return ErrInvalidInput
	}
	question, err := c.store.Questions.GetByID(ctx, questionID)
	if err != nil {
		return err
	}
	if question == nil {
		return ErrQuestionNotFound
	}
	if !question.Active {
		return nil
	}
	return c.store.Questions.Deactivate(ctx, questionID)
}
