package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/windfall/accent_coach/internal/client"
)

// Sentence is a practice sentence.
type Sentence struct {
	ID         int    `json:"id"`
	Text       string `json:"text"`
	Difficulty string `json:"difficulty"`
	Focus      string `json:"focus"`
}

// GetID implements Entity.
func (s Sentence) GetID() string {
	return strconv.Itoa(s.ID)
}

// DefaultSentences is the built-in practice catalogue.
var DefaultSentences = []Sentence{
	{ID: 1, Text: "The quick brown fox jumps over the lazy dog.", Difficulty: "easy", Focus: "General pronunciation"},
	{ID: 2, Text: "She sells seashells by the seashore.", Difficulty: "medium", Focus: "S and SH sounds"},
	{ID: 3, Text: "Peter Piper picked a peck of pickled peppers.", Difficulty: "medium", Focus: "P sounds and rhythm"},
	{ID: 4, Text: "How much wood would a woodchuck chuck if a woodchuck could chuck wood?", Difficulty: "hard", Focus: "W sounds and tongue twisters"},
	{ID: 5, Text: "The thirty-three thieves thought that they thrilled the throne throughout Thursday.", Difficulty: "hard", Focus: "TH sounds"},
}

// SentenceRepository reads practice sentences.
type SentenceRepository interface {
	List(ctx context.Context) ([]Sentence, error)
	GetByID(ctx context.Context, id int) (*Sentence, error)
}

// InMemorySentenceRepository serves a fixed catalogue.
type InMemorySentenceRepository struct {
	store *InMemoryRepository[Sentence]
}

// NewInMemorySentenceRepository seeds a repository with sentences.
func NewInMemorySentenceRepository(sentences []Sentence) *InMemorySentenceRepository {
	store := NewInMemoryRepository[Sentence]()
	for _, s := range sentences {
		_ = store.Create(context.Background(), s)
	}
	return &InMemorySentenceRepository{store: store}
}

// List implements SentenceRepository.
func (r *InMemorySentenceRepository) List(ctx context.Context) ([]Sentence, error) {
	return r.store.GetAll(ctx)
}

// GetByID implements SentenceRepository.
func (r *InMemorySentenceRepository) GetByID(ctx context.Context, id int) (*Sentence, error) {
	s, err := r.store.GetByID(ctx, strconv.Itoa(id))
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PostgresSentenceRepository reads the practice_sentences table.
type PostgresSentenceRepository struct {
	db *client.PostgresClient
}

// NewPostgresSentenceRepository creates a PostgresSentenceRepository.
func NewPostgresSentenceRepository(db *client.PostgresClient) *PostgresSentenceRepository {
	return &PostgresSentenceRepository{db: db}
}

// List implements SentenceRepository.
func (r *PostgresSentenceRepository) List(ctx context.Context) ([]Sentence, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, fmt.Errorf("database not configured")
	}

	query := `
		SELECT id, text, difficulty, focus
		FROM practice_sentences
		WHERE is_active = TRUE
		ORDER BY id
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sentences: %w", err)
	}
	defer rows.Close()

	var sentences []Sentence
	for rows.Next() {
		var s Sentence
		if err := rows.Scan(&s.ID, &s.Text, &s.Difficulty, &s.Focus); err != nil {
			return nil, fmt.Errorf("failed to scan sentence: %w", err)
		}
		sentences = append(sentences, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sentences: %w", err)
	}

	return sentences, nil
}

// GetByID implements SentenceRepository.
func (r *PostgresSentenceRepository) GetByID(ctx context.Context, id int) (*Sentence, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, fmt.Errorf("database not configured")
	}

	query := `
		SELECT id, text, difficulty, focus
		FROM practice_sentences
		WHERE id = $1 AND is_active = TRUE
	`

	var s Sentence
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.Text, &s.Difficulty, &s.Focus)
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sentence: %w", err)
	}

	return &s, nil
}
