package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/johnquangdev/qa-review/internal/domain/repositories"
)

// constraintError maps gorm's translated constraint errors onto the
// repository sentinels. The gorm handle must be opened with TranslateError.
func constraintError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", repositories.ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %w", repositories.ErrReferenced, err)
	}
	return err
}
