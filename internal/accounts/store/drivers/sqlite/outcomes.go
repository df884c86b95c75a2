package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/govsignin/accountsvc/internal/accounts/domain"
)

type outcomesRepo struct {
	db dbtx
}

func (r *outcomesRepo) CreateOutcome(ctx context.Context, o domain.JourneyOutcome) error {
	journeys, err := json.Marshal(o.Journeys)
	if err != nil {
		return fmt.Errorf("encode outcome journeys: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO journey_outcomes (id, sub, email, scope, success, journeys, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Sub, o.Email, o.Scope, o.Success, string(journeys), o.ExpiresAt,
	)
	return mapConflict(err)
}

func (r *outcomesRepo) GetOutcome(ctx context.Context, id string) (domain.JourneyOutcome, error) {
	var (
		o        domain.JourneyOutcome
		journeys string
	)
	row := r.db.QueryRowContext(ctx,
		`SELECT id, sub, email, scope, success, journeys, expires_at
		 FROM journey_outcomes WHERE id = ?`, id,
	)
	if err := row.Scan(&o.ID, &o.Sub, &o.Email, &o.Scope, &o.Success, &journeys, &o.ExpiresAt); err != nil {
		return domain.JourneyOutcome{}, mapNotFound(err)
	}
	if err := json.Unmarshal([]byte(journeys), &o.Journeys); err != nil {
		return domain.JourneyOutcome{}, fmt.Errorf("decode outcome journeys: %w", err)
	}
	return o, nil
}

func (r *outcomesRepo) DeleteExpiredOutcomes(ctx context.Context, now int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM journey_outcomes WHERE expires_at <= ?`, now)
	return err
}
