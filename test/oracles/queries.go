package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_confirmed_has_one_selected",
			SQL: `SELECT r.id, COUNT(a.id) FILTER (WHERE a.status = 'selected') AS selected
                  FROM walk_requests r
                  LEFT JOIN applications a ON a.request_id = r.id
                  WHERE r.status = 'confirmed'
                  GROUP BY r.id
                  HAVING COUNT(a.id) FILTER (WHERE a.status = 'selected') <> 1`,
		},
		{
			Name: "O2_at_most_one_selected",
			SQL: `SELECT request_id, COUNT(*) FROM applications
                  WHERE status = 'selected'
                  GROUP BY request_id HAVING COUNT(*) > 1`,
		},
		{
			Name: "O3_selected_walker_matches",
			SQL: `SELECT r.id FROM walk_requests r
                  JOIN applications a ON a.request_id = r.id AND a.status = 'selected'
                  WHERE r.selected_walker_id IS DISTINCT FROM a.walker_id`,
		},
		{
			Name: "O4_open_has_no_decision",
			SQL: `SELECT r.id FROM walk_requests r
                  WHERE r.status = 'open'
                    AND (r.selected_walker_id IS NOT NULL
                         OR EXISTS (SELECT 1 FROM applications a
                                    WHERE a.request_id = r.id AND a.status <> 'pending'))`,
		},
		{
			Name: "O5_only_approved_walkers_apply",
			SQL: `SELECT a.id FROM applications a
                  LEFT JOIN walker_profiles p ON p.user_id = a.walker_id
                  WHERE p.user_id IS NULL OR p.approval_status <> 'approved'`,
		},
		{
			Name: "O6_no_self_application",
			SQL: `SELECT a.id FROM applications a
                  JOIN walk_requests r ON r.id = a.request_id
                  WHERE a.walker_id = r.owner_id`,
		},
		{
			Name: "O7_review_timestamp_consistent",
			SQL: `SELECT user_id FROM walker_profiles
                  WHERE (approval_status = 'approved' AND approved_at IS NULL)
                     OR (approval_status <> 'approved' AND approved_at IS NOT NULL)`,
		},
		{
			Name: "O8_request_owns_pet",
			SQL: `SELECT r.id FROM walk_requests r
                  JOIN pets p ON p.id = r.pet_id
                  WHERE p.owner_id <> r.owner_id`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and a sample
// row) or an empty name when every invariant holds.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		if rows.Next() {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
