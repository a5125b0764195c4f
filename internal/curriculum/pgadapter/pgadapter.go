// Package pgadapter implements the metadata half of fovapi.CurriculumPort
// (every method except GenerateContextForQuery) against Postgres,
// grounded on the teacher's internal/persistence/databases postgres stores:
// a pgxpool.Pool, CREATE TABLE IF NOT EXISTS schema setup in Init, and
// row-scanning query methods.
package pgadapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fovtutor/internal/fov/fovapi"
)

// Adapter is a Postgres-backed source of curriculum metadata. It does not
// implement GenerateContextForQuery, so on its own it is not a
// fovapi.CurriculumPort: vectoradapter.New takes it as the MetadataPort that
// a full port is composed from.
type Adapter struct {
	pool *pgxpool.Pool
}

// New returns a pgadapter.Adapter backed by pool. Callers own the pool's
// lifecycle; Adapter has no Close method and never closes the pool.
func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{pool: pool}
}

// Init creates the schema if it does not already exist.
func (a *Adapter) Init(ctx context.Context) error {
	if a.pool == nil {
		return errors.New("pgadapter: requires a pool")
	}
	_, err := a.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS curriculum_topics (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    outline TEXT NOT NULL DEFAULT '',
    objectives TEXT[] NOT NULL DEFAULT '{}',
    unit_title TEXT NOT NULL DEFAULT '',
    curriculum_title TEXT NOT NULL DEFAULT '',
    topic_index INTEGER NOT NULL,
    total_topics INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS curriculum_glossary (
    topic_id TEXT NOT NULL REFERENCES curriculum_topics(id) ON DELETE CASCADE,
    term TEXT NOT NULL,
    definition TEXT NOT NULL,
    spoken_form TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS curriculum_glossary_topic_idx ON curriculum_glossary(topic_id);

CREATE TABLE IF NOT EXISTS curriculum_misconceptions (
    topic_id TEXT NOT NULL REFERENCES curriculum_topics(id) ON DELETE CASCADE,
    trigger_phrase TEXT NOT NULL,
    misconception TEXT NOT NULL,
    remediation TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS curriculum_misconceptions_topic_idx ON curriculum_misconceptions(topic_id);
`)
	return err
}

func (a *Adapter) TopicMetadata(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicMetadata, error) {
	var meta fovapi.TopicMetadata
	var objectives []string
	err := a.pool.QueryRow(ctx, `SELECT title, outline, objectives FROM curriculum_topics WHERE id = $1`, topic.ID).
		Scan(&meta.Title, &meta.Outline, &objectives)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fovapi.TopicMetadata{}, fmt.Errorf("pgadapter: topic %q not found: %w", topic.ID, err)
		}
		return fovapi.TopicMetadata{}, fmt.Errorf("pgadapter: topic metadata: %w", err)
	}
	meta.Objectives = objectives
	return meta, nil
}

func (a *Adapter) Glossary(ctx context.Context, topic fovapi.TopicRef, query string) ([]fovapi.GlossaryTerm, error) {
	rows, err := a.pool.Query(ctx, `
SELECT term, definition, spoken_form FROM curriculum_glossary
WHERE topic_id = $1 AND ($2 = '' OR term ILIKE '%' || $2 || '%')
ORDER BY term`, topic.ID, query)
	if err != nil {
		return nil, fmt.Errorf("pgadapter: glossary: %w", err)
	}
	defer rows.Close()

	var terms []fovapi.GlossaryTerm
	for rows.Next() {
		var t fovapi.GlossaryTerm
		if err := rows.Scan(&t.Term, &t.Definition, &t.SpokenForm); err != nil {
			return nil, fmt.Errorf("pgadapter: scan glossary: %w", err)
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

func (a *Adapter) Misconceptions(ctx context.Context, topic fovapi.TopicRef) ([]fovapi.MisconceptionTrigger, error) {
	rows, err := a.pool.Query(ctx, `
SELECT trigger_phrase, misconception, remediation FROM curriculum_misconceptions
WHERE topic_id = $1`, topic.ID)
	if err != nil {
		return nil, fmt.Errorf("pgadapter: misconceptions: %w", err)
	}
	defer rows.Close()

	var out []fovapi.MisconceptionTrigger
	for rows.Next() {
		var m fovapi.MisconceptionTrigger
		if err := rows.Scan(&m.TriggerPhrase, &m.Misconception, &m.Remediation); err != nil {
			return nil, fmt.Errorf("pgadapter: scan misconception: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (a *Adapter) Outline(ctx context.Context) (string, error) {
	rows, err := a.pool.Query(ctx, `SELECT title FROM curriculum_topics ORDER BY topic_index`)
	if err != nil {
		return "", fmt.Errorf("pgadapter: outline: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return "", fmt.Errorf("pgadapter: scan outline row: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	var out string
	for i, title := range titles {
		if i > 0 {
			out += "\n"
		}
		out += title
	}
	return out, nil
}

func (a *Adapter) Position(ctx context.Context, topic fovapi.TopicRef) (fovapi.Position, error) {
	var pos fovapi.Position
	err := a.pool.QueryRow(ctx, `
SELECT curriculum_title, topic_index, total_topics, unit_title
FROM curriculum_topics WHERE id = $1`, topic.ID).
		Scan(&pos.CurriculumTitle, &pos.CurrentTopicIdx, &pos.TotalTopics, &pos.CurrentUnitTitle)
	if err != nil {
		return fovapi.Position{}, fmt.Errorf("pgadapter: position: %w", err)
	}
	return pos, nil
}

func (a *Adapter) PreviousTopic(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicRef, bool, error) {
	return a.neighborByOffset(ctx, topic, -1)
}

func (a *Adapter) NextTopic(ctx context.Context, topic fovapi.TopicRef) (fovapi.TopicRef, bool, error) {
	return a.neighborByOffset(ctx, topic, 1)
}

func (a *Adapter) neighborByOffset(ctx context.Context, topic fovapi.TopicRef, offset int) (fovapi.TopicRef, bool, error) {
	var idx int
	if err := a.pool.QueryRow(ctx, `SELECT topic_index FROM curriculum_topics WHERE id = $1`, topic.ID).Scan(&idx); err != nil {
		return fovapi.TopicRef{}, false, fmt.Errorf("pgadapter: lookup topic index: %w", err)
	}
	return a.TopicAt(ctx, idx+offset)
}

func (a *Adapter) TopicAt(ctx context.Context, index int) (fovapi.TopicRef, bool, error) {
	if index < 0 {
		return fovapi.TopicRef{}, false, nil
	}
	var id string
	err := a.pool.QueryRow(ctx, `SELECT id FROM curriculum_topics WHERE topic_index = $1`, index).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fovapi.TopicRef{}, false, nil
	}
	if err != nil {
		return fovapi.TopicRef{}, false, fmt.Errorf("pgadapter: topic at %d: %w", index, err)
	}
	return fovapi.TopicRef{ID: id}, true, nil
}
