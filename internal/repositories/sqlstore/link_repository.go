package sqlstore

import (
	"context"
	"fmt"

	"github.com/asakaida/polylink/internal/entities"
)

type linkRepository struct {
	q       querier
	dialect Dialect
}

// Link tags an edge with a kind; an existing link is left alone
func (r *linkRepository) Link(ctx context.Context, edgeID, kindID int64) (bool, error) {
	if edgeID <= 0 || kindID <= 0 {
		return false, fmt.Errorf("invalid link: edge %d, kind %d", edgeID, kindID)
	}

	query := r.dialect.insertIgnore("links",
		[]string{"edge_id", "relation_kind_id"},
		[]string{"edge_id", "relation_kind_id"},
	)
	result, err := r.q.ExecContext(ctx, r.dialect.rebind(query), edgeID, kindID)
	if err != nil {
		return false, fmt.Errorf("failed to create link: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count created links: %w", err)
	}

	return n > 0, nil
}

// Unlink removes links of the given edges, scoped to kindID unless it is 0
func (r *linkRepository) Unlink(ctx context.Context, edgeIDs []int64, kindID int64) (int64, error) {
	if len(edgeIDs) == 0 {
		return 0, nil
	}

	pred, args := r.dialect.inIDs("edge_id", edgeIDs)
	query := "DELETE FROM links WHERE " + pred
	if kindID != 0 {
		query += " AND relation_kind_id = ?"
		args = append(args, kindID)
	}

	result, err := r.q.ExecContext(ctx, r.dialect.rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete links: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted links: %w", err)
	}

	return n, nil
}

// ListByEdge retrieves the links of one edge
func (r *linkRepository) ListByEdge(ctx context.Context, edgeID int64) ([]*entities.Link, error) {
	query := `SELECT id, edge_id, relation_kind_id FROM links WHERE edge_id = ? ORDER BY id`

	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(query), edgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to read links: %w", err)
	}
	defer rows.Close()

	var links []*entities.Link
	for rows.Next() {
		var link entities.Link
		if err := rows.Scan(&link.ID, &link.EdgeID, &link.KindID); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, &link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}
