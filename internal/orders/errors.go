package orders

import (
	"errors"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	ErrDuplicateName        = errors.New("platform name already exists")
	ErrReferentialIntegrity = errors.New("platform is referenced by existing orders")
)

// translateError maps backend constraint failures onto the gateway's sentinel errors.
// gorm's translator covers most cases; the raw sqlite codes catch the rest.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicateName
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrReferentialIntegrity
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique:
			return ErrDuplicateName
		case sqlite3.ErrConstraintForeignKey:
			return ErrReferentialIntegrity
		}
	}

	return err
}
