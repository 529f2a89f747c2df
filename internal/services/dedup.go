// Package services – deduplicating mutation executor
//
// Creation requests whose semantic content is identical (same user, route,
// body and route parameters) map to the same idempotency key. The executor
// looks the key up first; on a miss it runs the caller's create function in a
// transaction and stores the key with the row. When two identical requests
// race, the unique index on the key column lets exactly one insert win and the
// loser converges on the winner's row instead of surfacing the conflict.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-recipes-backend/internal/domain"
	"github.com/tbourn/go-recipes-backend/internal/repo"
)

// Outcome tells whether a deduplicated mutation inserted a row or returned a
// previously stored one.
type Outcome int

const (
	// OutcomeCreated means this request inserted the row.
	OutcomeCreated Outcome = iota
	// OutcomeExisting means an identical request had already created the row.
	OutcomeExisting
)

func (o Outcome) String() string {
	if o == OutcomeExisting {
		return "existing"
	}
	return "created"
}

// Created reports whether the outcome is OutcomeCreated.
func (o Outcome) Created() bool { return o == OutcomeCreated }

// mutation describes one deduplicated create.
type mutation[T any] struct {
	// resource labels metrics, spans and logs ("recipe", "ingredient", ...).
	resource string
	key      uuid.UUID
	// find looks a row up by key and returns repo.ErrNotFound on a miss.
	find func(ctx context.Context, db *gorm.DB, key uuid.UUID) (*T, error)
	// create runs inside the transaction and must persist the key with the row.
	create func(ctx context.Context, tx *gorm.DB) (*T, error)
}

// afterMiss runs between a failed key lookup and the insert transaction.
// Tests replace it to interleave a competing request deterministically.
var afterMiss = func(ctx context.Context, resource string, key uuid.UUID) {}

// execute runs m against db and reports whether the row was created.
//
// Errors from create are returned unchanged unless they are a unique violation
// and a row with m.key exists afterwards; the losing side of a race then
// returns that row with OutcomeExisting.
func execute[T any](ctx context.Context, db *gorm.DB, m mutation[T]) (*T, Outcome, error) {
	ctx, span := otel.Tracer("services/dedup").Start(ctx, "execute",
		trace.WithAttributes(
			attribute.String("resource", m.resource),
			attribute.String("idempotency.key", m.key.String()),
		),
	)
	defer span.End()

	lg := zerolog.Ctx(ctx).With().
		Str("resource", m.resource).
		Str("idempotency_key", m.key.String()).
		Logger()

	row, err := m.find(ctx, db, m.key)
	switch {
	case err == nil:
		record(span, m.resource, outcomeExisting)
		lg.Debug().Msg("idempotent hit")
		return row, OutcomeExisting, nil
	case !repo.IsNotFound(err):
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, OutcomeCreated, fmt.Errorf("%s lookup: %w", m.resource, err)
	}

	afterMiss(ctx, m.resource, m.key)

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cerr error
		if row, cerr = m.create(ctx, tx); cerr != nil {
			return cerr
		}
		return checkKeyed(row, m.key)
	})
	if err == nil {
		record(span, m.resource, outcomeCreated)
		lg.Debug().Msg("idempotent insert")
		return row, OutcomeCreated, nil
	}

	if repo.IsUniqueViolation(err) {
		winner, ferr := m.find(ctx, db, m.key)
		if ferr == nil {
			record(span, m.resource, outcomeRaceRecovered)
			lg.Info().Msg("idempotent race recovered")
			return winner, OutcomeExisting, nil
		}
		if !repo.IsNotFound(ferr) {
			err = errors.Join(err, ferr)
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "create failed")
	return nil, OutcomeCreated, err
}

// errKeyNotStored rolls back a create that forgot to persist its key; such a
// row could never be found again by an identical request.
var errKeyNotStored = errors.New("created row does not carry its idempotency key")

// checkKeyed verifies the invariant for models implementing domain.Keyed.
func checkKeyed(row any, key uuid.UUID) error {
	k, ok := row.(domain.Keyed)
	if !ok {
		return nil
	}
	if got, has := k.RequestKey(); !has || got != key {
		return errKeyNotStored
	}
	return nil
}

func record(span trace.Span, resource, outcome string) {
	idempotentMutations.WithLabelValues(resource, outcome).Inc()
	span.SetAttributes(attribute.String("outcome", outcome))
}
