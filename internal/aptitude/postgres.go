package aptitude

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/failure"
	"github.com/spigell/skill-matcher/internal/logger"
)

const (
	opAptitudes = "aptitudes"

	ratedSkillsQuery = `SELECT skill_id, rating, is_top5
		FROM aptitudes
		WHERE person_id = $1
		ORDER BY skill_id`
)

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type rowIterator interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// PostgresStore reads ratings from the aptitudes table.
type PostgresStore struct {
	logger *zap.Logger
	pool   *pgxpool.Pool
	db     querier
}

var _ Store = (*PostgresStore)(nil)

// Connect establishes a connection pool and verifies it with a ping.
func Connect(ctx context.Context, log *zap.Logger, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{logger: logger.OrNop(log), pool: pool, db: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) RatedSkillsOf(ctx context.Context, personID string) ([]SkillRating, error) {
	if err := ctx.Err(); err != nil {
		return nil, failure.Retrieval(opAptitudes, err)
	}

	rows, err := s.db.Query(ctx, ratedSkillsQuery, personID)
	if err != nil {
		return nil, failure.Retrieval(opAptitudes, fmt.Errorf("failed to query aptitudes: %w", err))
	}
	defer rows.Close()

	ratings, err := collectRatings(rows)
	if err != nil {
		return nil, failure.Retrieval(opAptitudes, err)
	}

	s.logger.Debug("aptitudes loaded",
		zap.String(logger.FieldPersonID, personID),
		zap.Int("count", len(ratings)),
	)

	return ratings, nil
}

func collectRatings(rows rowIterator) ([]SkillRating, error) {
	ratings := make([]SkillRating, 0)
	for rows.Next() {
		var (
			skillID string
			rating  *float64
			isTop5  *bool
		)
		if err := rows.Scan(&skillID, &rating, &isTop5); err != nil {
			return nil, fmt.Errorf("failed to scan aptitude: %w", err)
		}

		r := SkillRating{SkillID: skillID}
		if rating != nil {
			r.Value = clampRating(*rating)
		}
		if isTop5 != nil {
			r.IsTop5 = *isTop5
		}
		ratings = append(ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate aptitudes: %w", err)
	}

	return ratings, nil
}
