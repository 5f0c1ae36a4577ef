package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/stylebook/backend/internal/database"
	"github.com/stylebook/backend/internal/ledger"
	"github.com/stylebook/backend/internal/models"
)

// translate maps driver errors onto the domain sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return models.ErrNotFound
	case database.HasCode(err, database.CodeUniqueViolation):
		switch database.ConstraintName(err) {
		case "transactions_reference_key":
			return ledger.ErrDuplicateReference
		case "pouches_appointment_id_kind_key":
			return ledger.ErrDuplicatePouch
		}
	case database.HasCode(err, database.CodeCheckViolation):
		if database.ConstraintName(err) == "users_balance_check" {
			return ledger.ErrInsufficientBalance
		}
	}
	return err
}
