// Package postgres implements store.Store on a pgx connection pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prompthive/server/internal/models"
	"github.com/prompthive/server/internal/store"
)

type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return store.ErrConflict
	}
	return err
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.db.QueryRow(ctx,
		`SELECT id, email, full_name, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", mapErr(err))
	}
	return &u, nil
}

func (s *Store) UserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) CreatePrompt(ctx context.Context, p store.CreatePromptParams) (*models.Prompt, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var prompt models.Prompt
	err = tx.QueryRow(ctx,
		`INSERT INTO prompts (owner_id, title, description, technical_id, is_locked, is_private)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, owner_id, title, description, technical_id, is_locked, is_private, current_version_id, created_at, updated_at`,
		p.OwnerID, p.Title, p.Description, p.TechnicalID, p.IsLocked, p.IsPrivate,
	).Scan(&prompt.ID, &prompt.OwnerID, &prompt.Title, &prompt.Description, &prompt.TechnicalID,
		&prompt.IsLocked, &prompt.IsPrivate, &prompt.CurrentVersionID, &prompt.CreatedAt, &prompt.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert prompt: %w", mapErr(err))
	}

	for _, vp := range p.Versions {
		var v models.PromptVersion
		err = tx.QueryRow(ctx,
			`INSERT INTO prompt_versions (prompt_id, version_number, content, short_content, usage_example, variable_definitions, result_text, result_image, changelog)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 RETURNING id, prompt_id, version_number, content, short_content, usage_example, variable_definitions, result_text, result_image, changelog, created_at`,
			prompt.ID, vp.VersionNumber, vp.Content, vp.ShortContent, vp.UsageExample,
			vp.VariableDefinitions, vp.ResultText, vp.ResultImage, vp.Changelog,
		).Scan(&v.ID, &v.PromptID, &v.VersionNumber, &v.Content, &v.ShortContent, &v.UsageExample,
			&v.VariableDefinitions, &v.ResultText, &v.ResultImage, &v.Changelog, &v.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("insert version %d: %w", vp.VersionNumber, mapErr(err))
		}

		for _, ap := range vp.Attachments {
			var a models.Attachment
			err = tx.QueryRow(ctx,
				`INSERT INTO attachments (version_id, file_path, file_type, role)
				 VALUES ($1, $2, $3, $4)
				 RETURNING id, version_id, file_path, file_type, role, created_at`,
				v.ID, ap.FilePath, ap.FileType, ap.Role,
			).Scan(&a.ID, &a.VersionID, &a.FilePath, &a.FileType, &a.Role, &a.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("insert attachment: %w", mapErr(err))
			}
			v.Attachments = append(v.Attachments, a)
		}
		prompt.Versions = append(prompt.Versions, v)
	}

	for _, tagID := range p.TagIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO prompt_tags (prompt_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			prompt.ID, tagID,
		); err != nil {
			return nil, fmt.Errorf("link tag: %w", err)
		}
	}
	for _, colID := range p.CollectionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO prompt_collections (prompt_id, collection_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			prompt.ID, colID,
		); err != nil {
			return nil, fmt.Errorf("link collection: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &prompt, nil
}

const promptCols = `id, owner_id, title, description, technical_id, is_locked, is_private, current_version_id, created_at, updated_at`

func scanPrompt(row pgx.Row) (*models.Prompt, error) {
	var p models.Prompt
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.TechnicalID,
		&p.IsLocked, &p.IsPrivate, &p.CurrentVersionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) PromptByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Prompt, error) {
	p, err := scanPrompt(s.db.QueryRow(ctx,
		`SELECT `+promptCols+` FROM prompts WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", mapErr(err))
	}
	if err := s.loadPromptRelations(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) PromptByTitle(ctx context.Context, ownerID uuid.UUID, title string) (*models.Prompt, error) {
	p, err := scanPrompt(s.db.QueryRow(ctx,
		`SELECT `+promptCols+` FROM prompts WHERE owner_id = $1 AND title = $2`, ownerID, title))
	if err != nil {
		return nil, fmt.Errorf("get prompt by title: %w", mapErr(err))
	}
	return p, nil
}

func (s *Store) ListPrompts(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]models.Prompt, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+promptCols+` FROM prompts WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()
	return collectPrompts(rows)
}

func collectPrompts(rows pgx.Rows) ([]models.Prompt, error) {
	var prompts []models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, *p)
	}
	return prompts, rows.Err()
}

func (s *Store) PromptsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Prompt, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+promptCols+` FROM prompts WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("prompts by owner: %w", err)
	}
	defer rows.Close()

	prompts, err := collectPrompts(rows)
	if err != nil {
		return nil, err
	}
	for i := range prompts {
		if err := s.loadPromptRelations(ctx, &prompts[i]); err != nil {
			return nil, err
		}
	}
	return prompts, nil
}

func (s *Store) PromptsInCollections(ctx context.Context, ownerID uuid.UUID, collectionIDs []uuid.UUID) ([]models.Prompt, error) {
	if len(collectionIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT p.id, p.owner_id, p.title, p.description, p.technical_id, p.is_locked, p.is_private, p.current_version_id, p.created_at, p.updated_at
		 FROM prompts p
		 JOIN prompt_collections pc ON pc.prompt_id = p.id
		 WHERE p.owner_id = $1 AND pc.collection_id = ANY($2)
		 ORDER BY p.created_at`,
		ownerID, collectionIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("prompts in collections: %w", err)
	}
	defer rows.Close()

	prompts, err := collectPrompts(rows)
	if err != nil {
		return nil, err
	}
	for i := range prompts {
		if err := s.loadPromptRelations(ctx, &prompts[i]); err != nil {
			return nil, err
		}
	}
	return prompts, nil
}

func (s *Store) loadPromptRelations(ctx context.Context, p *models.Prompt) error {
	tagRows, err := s.db.Query(ctx,
		`SELECT t.id, t.name, t.color FROM tags t
		 JOIN prompt_tags pt ON pt.tag_id = t.id WHERE pt.prompt_id = $1 ORDER BY t.name`, p.ID)
	if err != nil {
		return fmt.Errorf("load prompt tags: %w", err)
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var t models.Tag
		if err := tagRows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		p.Tags = append(p.Tags, t)
	}
	if err := tagRows.Err(); err != nil {
		return err
	}

	colRows, err := s.db.Query(ctx,
		`SELECT c.id, c.owner_id, c.title, c.description, c.parent_id, c.created_at FROM collections c
		 JOIN prompt_collections pc ON pc.collection_id = c.id WHERE pc.prompt_id = $1 ORDER BY c.title`, p.ID)
	if err != nil {
		return fmt.Errorf("load prompt collections: %w", err)
	}
	defer colRows.Close()
	for colRows.Next() {
		var c models.Collection
		if err := colRows.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.ParentID, &c.CreatedAt); err != nil {
			return fmt.Errorf("scan collection: %w", err)
		}
		p.Collections = append(p.Collections, c)
	}
	if err := colRows.Err(); err != nil {
		return err
	}

	verRows, err := s.db.Query(ctx,
		`SELECT id, prompt_id, version_number, content, short_content, usage_example, variable_definitions, result_text, result_image, changelog, created_at
		 FROM prompt_versions WHERE prompt_id = $1 ORDER BY version_number`, p.ID)
	if err != nil {
		return fmt.Errorf("load versions: %w", err)
	}
	defer verRows.Close()
	for verRows.Next() {
		var v models.PromptVersion
		if err := verRows.Scan(&v.ID, &v.PromptID, &v.VersionNumber, &v.Content, &v.ShortContent,
			&v.UsageExample, &v.VariableDefinitions, &v.ResultText, &v.ResultImage, &v.Changelog, &v.CreatedAt); err != nil {
			return fmt.Errorf("scan version: %w", err)
		}
		p.Versions = append(p.Versions, v)
	}
	if err := verRows.Err(); err != nil {
		return err
	}

	for i := range p.Versions {
		attRows, err := s.db.Query(ctx,
			`SELECT id, version_id, file_path, file_type, role, created_at
			 FROM attachments WHERE version_id = $1 ORDER BY created_at`, p.Versions[i].ID)
		if err != nil {
			return fmt.Errorf("load attachments: %w", err)
		}
		for attRows.Next() {
			var a models.Attachment
			if err := attRows.Scan(&a.ID, &a.VersionID, &a.FilePath, &a.FileType, &a.Role, &a.CreatedAt); err != nil {
				attRows.Close()
				return fmt.Errorf("scan attachment: %w", err)
			}
			p.Versions[i].Attachments = append(p.Versions[i].Attachments, a)
		}
		err = attRows.Err()
		attRows.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeletePrompt(ctx context.Context, ownerID, id uuid.UUID) error {
	_, err := s.db.Exec(ctx, `DELETE FROM prompts WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return err
}

func (s *Store) SetCurrentVersion(ctx context.Context, promptID, versionID uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE prompts SET current_version_id = $1, updated_at = now() WHERE id = $2`, versionID, promptID)
	return err
}

func (s *Store) SetTechnicalID(ctx context.Context, promptID uuid.UUID, technicalID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE prompts SET technical_id = $1, updated_at = now() WHERE id = $2`, technicalID, promptID)
	return err
}

func (s *Store) ConnectRelated(ctx context.Context, promptID uuid.UUID, targetIDs []uuid.UUID) error {
	for _, target := range targetIDs {
		if _, err := s.db.Exec(ctx,
			`INSERT INTO prompt_links (source_id, target_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			promptID, target,
		); err != nil {
			return fmt.Errorf("connect related: %w", err)
		}
	}
	return nil
}

func (s *Store) RelatedTechnicalIDs(ctx context.Context, promptID uuid.UUID) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT p.technical_id FROM prompt_links l
		 JOIN prompts p ON p.id = l.target_id
		 WHERE l.source_id = $1 AND p.technical_id <> ''`, promptID)
	if err != nil {
		return nil, fmt.Errorf("related technical ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan technical id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) TagsByName(ctx context.Context, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT id, name, color FROM tags WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, fmt.Errorf("tags by name: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) TagByName(ctx context.Context, name string) (*models.Tag, error) {
	var t models.Tag
	err := s.db.QueryRow(ctx, `SELECT id, name, color FROM tags WHERE name = $1`, name).
		Scan(&t.ID, &t.Name, &t.Color)
	if err != nil {
		return nil, fmt.Errorf("tag by name: %w", mapErr(err))
	}
	return &t, nil
}

func (s *Store) CreateTag(ctx context.Context, name, color string) (*models.Tag, error) {
	var t models.Tag
	err := s.db.QueryRow(ctx,
		`INSERT INTO tags (name, color) VALUES ($1, $2) RETURNING id, name, color`, name, color).
		Scan(&t.ID, &t.Name, &t.Color)
	if err != nil {
		return nil, fmt.Errorf("create tag: %w", mapErr(err))
	}
	return &t, nil
}

func (s *Store) ListTags(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, color FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) DeleteOrphanTags(ctx context.Context) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM tags WHERE NOT EXISTS (SELECT 1 FROM prompt_tags pt WHERE pt.tag_id = tags.id)`)
	return err
}

const collectionCols = `id, owner_id, title, description, parent_id, created_at`

func scanCollection(row pgx.Row) (*models.Collection, error) {
	var c models.Collection
	err := row.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Description, &c.ParentID, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CollectionByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Collection, error) {
	c, err := scanCollection(s.db.QueryRow(ctx,
		`SELECT `+collectionCols+` FROM collections WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", mapErr(err))
	}
	return c, nil
}

func (s *Store) CollectionsByID(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.Collection, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+collectionCols+` FROM collections WHERE owner_id = $1 AND id = ANY($2)`, ownerID, ids)
	if err != nil {
		return nil, fmt.Errorf("collections by id: %w", err)
	}
	defer rows.Close()
	return collectCollections(rows)
}

func collectCollections(rows pgx.Rows) ([]models.Collection, error) {
	var cols []models.Collection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		cols = append(cols, *c)
	}
	return cols, rows.Err()
}

func (s *Store) CollectionByTitleAndParent(ctx context.Context, ownerID uuid.UUID, title string, parentID *uuid.UUID) (*models.Collection, error) {
	var row pgx.Row
	if parentID == nil {
		row = s.db.QueryRow(ctx,
			`SELECT `+collectionCols+` FROM collections WHERE owner_id = $1 AND title = $2 AND parent_id IS NULL`,
			ownerID, title)
	} else {
		row = s.db.QueryRow(ctx,
			`SELECT `+collectionCols+` FROM collections WHERE owner_id = $1 AND title = $2 AND parent_id = $3`,
			ownerID, title, *parentID)
	}
	c, err := scanCollection(row)
	if err != nil {
		return nil, fmt.Errorf("collection by title+parent: %w", mapErr(err))
	}
	return c, nil
}

func (s *Store) CollectionsByTitles(ctx context.Context, ownerID uuid.UUID, titles []string) ([]models.Collection, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT `+collectionCols+` FROM collections WHERE owner_id = $1 AND title = ANY($2)`, ownerID, titles)
	if err != nil {
		return nil, fmt.Errorf("collections by titles: %w", err)
	}
	defer rows.Close()
	return collectCollections(rows)
}

func (s *Store) CreateCollection(ctx context.Context, p store.CreateCollectionParams) (*models.Collection, error) {
	c, err := scanCollection(s.db.QueryRow(ctx,
		`INSERT INTO collections (owner_id, title, description, parent_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+collectionCols,
		p.OwnerID, p.Title, p.Description, p.ParentID))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", mapErr(err))
	}
	return c, nil
}

func (s *Store) ListCollections(ctx context.Context, ownerID uuid.UUID) ([]models.Collection, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+collectionCols+` FROM collections WHERE owner_id = $1 ORDER BY title`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()
	return collectCollections(rows)
}

func (s *Store) SetCollectionParent(ctx context.Context, ownerID, id uuid.UUID, parentID *uuid.UUID) error {
	_, err := s.db.Exec(ctx,
		`UPDATE collections SET parent_id = $1 WHERE id = $2 AND owner_id = $3`, parentID, id, ownerID)
	return err
}

func (s *Store) DeleteCollection(ctx context.Context, ownerID, id uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Reparent children to the deleted node's parent so the tree stays intact.
	if _, err := tx.Exec(ctx,
		`UPDATE collections SET parent_id = (SELECT parent_id FROM collections WHERE id = $1)
		 WHERE parent_id = $1 AND owner_id = $2`, id, ownerID); err != nil {
		return fmt.Errorf("reparent children: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM collections WHERE id = $1 AND owner_id = $2`, id, ownerID); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) IncrementSequence(ctx context.Context, prefix string) (int64, error) {
	var value int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO technical_id_sequences (prefix, value) VALUES ($1, 1)
		 ON CONFLICT (prefix) DO UPDATE SET value = technical_id_sequences.value + 1
		 RETURNING value`, prefix).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", prefix, err)
	}
	return value, nil
}

func (s *Store) SettingsByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Settings, error) {
	var st models.Settings
	err := s.db.QueryRow(ctx,
		`SELECT owner_id, data, updated_at FROM settings WHERE owner_id = $1`, ownerID).
		Scan(&st.OwnerID, &st.Data, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", mapErr(err))
	}
	return &st, nil
}

func (s *Store) UpsertSettings(ctx context.Context, ownerID uuid.UUID, data json.RawMessage) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO settings (owner_id, data) VALUES ($1, $2)
		 ON CONFLICT (owner_id) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		ownerID, data)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func (s *Store) DeleteOwnerData(ctx context.Context, ownerID uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Order matters: links and favorites reference prompts; attachments and
	// versions cascade from prompts; collections are reparented by CASCADE NULL.
	stmts := []string{
		`DELETE FROM favorites WHERE owner_id = $1`,
		`DELETE FROM workflows WHERE owner_id = $1`,
		`DELETE FROM prompt_links WHERE source_id IN (SELECT id FROM prompts WHERE owner_id = $1)
		 OR target_id IN (SELECT id FROM prompts WHERE owner_id = $1)`,
		`DELETE FROM prompts WHERE owner_id = $1`,
		`DELETE FROM collections WHERE owner_id = $1`,
		`DELETE FROM settings WHERE owner_id = $1`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt, ownerID); err != nil {
			return fmt.Errorf("delete owner data: %w", err)
		}
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM tags WHERE NOT EXISTS (SELECT 1 FROM prompt_tags pt WHERE pt.tag_id = tags.id)`); err != nil {
		return fmt.Errorf("delete orphan tags: %w", err)
	}
	return tx.Commit(ctx)
}
