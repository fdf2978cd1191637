package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/numbering"
	"github.com/wms/backend/internal/domain/shared"
)

// NumberingService allocates gapless-per-winner document numbers from
// scoped sequence rows. Concurrent allocators race on the row version; a
// loser retries on a fresh read up to the configured attempt budget and
// fails with ErrNumberingContention when the budget runs out.
type NumberingService struct {
	scope      TransactionScope
	warehouses catalog.WarehouseRepository
	config     numbering.Config
	logger     *zap.Logger
}

// NewNumberingService creates a NumberingService
func NewNumberingService(
	scope TransactionScope,
	warehouses catalog.WarehouseRepository,
	config numbering.Config,
	logger *zap.Logger,
) *NumberingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = numbering.DefaultConfig().MaxAttempts
	}
	return &NumberingService{
		scope:      scope,
		warehouses: warehouses,
		config:     config,
		logger:     logger,
	}
}

// NextNumber allocates and renders the next document number for the scope
// (documentType, warehouseID, at.Year()). The increment commits even when
// the caller later discards the number; gaps from abandoned documents are
// acceptable.
func (s *NumberingService) NextNumber(ctx context.Context, documentType string, warehouseID *uuid.UUID, at time.Time) (string, error) {
	warehouseName, err := s.warehouseName(ctx, warehouseID)
	if err != nil {
		return "", err
	}
	year := at.Year()

	var rendered string
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			row, err := repos.NumberingRepo().FindByScope(ctx, documentType, warehouseID, year)
			if errors.Is(err, shared.ErrNotFound) {
				row, err = numbering.NewDocumentNumbering(
					documentType, warehouseID, year,
					s.config.PrefixFor(documentType), s.config.DefaultFormat,
				)
				if err != nil {
					return err
				}
				if err := repos.NumberingRepo().Create(ctx, row); err != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			value := row.Advance()
			if err := repos.NumberingRepo().SaveWithLock(ctx, row); err != nil {
				return err
			}
			rendered = row.Render(value, at, warehouseName)
			return nil
		})
		if err == nil {
			return rendered, nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) && !errors.Is(err, shared.ErrAlreadyExists) {
			return "", err
		}
		s.logger.Debug("numbering contention, retrying",
			zap.String("document_type", documentType),
			zap.Int("attempt", attempt))
	}

	s.logger.Warn("numbering retries exhausted",
		zap.String("document_type", documentType),
		zap.Int("max_attempts", s.config.MaxAttempts))
	return "", numbering.ErrNumberingContention
}

// PeekNumber renders the number the next allocation would produce without
// advancing the sequence. Useful for previews; the peeked value is not a
// reservation.
func (s *NumberingService) PeekNumber(ctx context.Context, documentType string, warehouseID *uuid.UUID, at time.Time) (string, error) {
	warehouseName, err := s.warehouseName(ctx, warehouseID)
	if err != nil {
		return "", err
	}

	var rendered string
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		row, err := repos.NumberingRepo().FindByScope(ctx, documentType, warehouseID, at.Year())
		if errors.Is(err, shared.ErrNotFound) {
			row, err = numbering.NewDocumentNumbering(
				documentType, warehouseID, at.Year(),
				s.config.PrefixFor(documentType), s.config.DefaultFormat,
			)
		}
		if err != nil {
			return err
		}
		rendered = row.Render(row.NextValue(), at, warehouseName)
		return nil
	})
	return rendered, err
}

func (s *NumberingService) warehouseName(ctx context.Context, warehouseID *uuid.UUID) (string, error) {
	if warehouseID == nil || s.warehouses == nil {
		return "", nil
	}
	warehouse, err := s.warehouses.FindByID(ctx, *warehouseID)
	if errors.Is(err, shared.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return warehouse.Code, nil
}
