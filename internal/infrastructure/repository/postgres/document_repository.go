package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

const (
	phapDienCollection = "phapdien"
	vbqpplCollection   = "vbqppl"
)

// DocumentRepository reads the legal corpus tables: the Phap Dien topic
// nodes and the VBQPPL documents with their structural nodes.
type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// FindByID looks the id up as a VBQPPL document first, then as a Phap Dien
// node.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*domain.CandidateDocument, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "find document", errors.New("id is required"))
	}

	doc, err := r.findVBQPPL(ctx, id)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	doc, err = r.findPhapDien(ctx, id)
	if err == nil {
		return doc, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "find document", fmt.Errorf("document %q", id))
	}
	return nil, err
}

func (r *DocumentRepository) findVBQPPL(ctx context.Context, id string) (*domain.CandidateDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, url
FROM vbqppl_docs
WHERE id = $1
`, id)

	var doc domain.CandidateDocument
	var url sql.NullString
	if err := row.Scan(&doc.ID, &doc.Title, &url); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query vbqppl document: %w", err)
	}
	doc.URL = url.String
	doc.Collection = vbqpplCollection
	doc.SourceType = domain.SourceLawDB

	content, err := r.vbqpplContent(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Content = content
	return &doc, nil
}

func (r *DocumentRepository) vbqpplContent(ctx context.Context, docID string) (string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT title, content
FROM vbqppl_nodes
WHERE doc_id = $1
ORDER BY id
`, docID)
	if err != nil {
		return "", fmt.Errorf("query vbqppl nodes: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var title sql.NullString
		var content string
		if err := rows.Scan(&title, &content); err != nil {
			return "", fmt.Errorf("scan vbqppl node: %w", err)
		}
		for _, part := range []string{title.String, content} {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(part)
		}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate vbqppl nodes: %w", err)
	}
	return b.String(), nil
}

func (r *DocumentRepository) findPhapDien(ctx context.Context, id string) (*domain.CandidateDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, text_content, demuc_id
FROM phapdien_nodes
WHERE id = $1
`, id)

	var doc domain.CandidateDocument
	var demuc sql.NullString
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Content, &demuc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("query phapdien node: %w", err)
	}
	doc.ParentID = demuc.String
	doc.Collection = phapDienCollection
	doc.SourceType = domain.SourceLawDB
	return &doc, nil
}
