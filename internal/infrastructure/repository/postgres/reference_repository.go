package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lexvn/legal-assistant/internal/core/domain"
)

// FindReferences loads, for every Phap Dien article id, the VBQPPL
// provisions it cites and the related articles. Unknown ids are skipped.
func (r *DocumentRepository) FindReferences(ctx context.Context, ids []string) (map[string]domain.ArticleReferences, error) {
	out := make(map[string]domain.ArticleReferences)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		refs, err := r.statuteReferences(ctx, id)
		if err != nil {
			return nil, err
		}
		related, err := r.relatedArticles(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(refs) == 0 && len(related) == 0 {
			continue
		}
		out[id] = domain.ArticleReferences{References: refs, Related: related}
	}
	return out, nil
}

func (r *DocumentRepository) statuteReferences(ctx context.Context, id string) ([]domain.StatuteReference, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT r.details, d.title, d.url, r.vbqppl_doc_id, r.vbqppl_anchor
FROM phapdien_references r
JOIN vbqppl_docs d ON r.vbqppl_doc_id = d.id
WHERE r.phapdien_id = $1
`, id)
	if err != nil {
		return nil, fmt.Errorf("query phapdien references: %w", err)
	}
	defer rows.Close()

	var out []domain.StatuteReference
	for rows.Next() {
		var details, title, url, anchor sql.NullString
		var ref domain.StatuteReference
		if err := rows.Scan(&details, &title, &url, &ref.DocID, &anchor); err != nil {
			return nil, fmt.Errorf("scan phapdien reference: %w", err)
		}
		ref.Details = strings.TrimSpace(details.String)
		ref.Title = title.String
		ref.URL = url.String
		ref.Anchor = anchor.String
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phapdien references: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) relatedArticles(ctx context.Context, id string) ([]domain.RelatedArticle, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT n.id, n.title
FROM phapdien_relations r
JOIN phapdien_nodes n ON r.target_id = n.id
WHERE r.source_id = $1
`, id)
	if err != nil {
		return nil, fmt.Errorf("query phapdien relations: %w", err)
	}
	defer rows.Close()

	var out []domain.RelatedArticle
	for rows.Next() {
		var rel domain.RelatedArticle
		var title sql.NullString
		if err := rows.Scan(&rel.ID, &title); err != nil {
			return nil, fmt.Errorf("scan phapdien relation: %w", err)
		}
		rel.Title = title.String
		out = append(out, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate phapdien relations: %w", err)
	}
	return out, nil
}
