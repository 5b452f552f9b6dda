package service

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// wrapInternal is applied at every operation boundary. Domain errors pass
// through unchanged; anything else is logged and re-wrapped as transient.
func wrapInternal(log zerolog.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.AsError(err) != nil {
		return err
	}
	log.Error().Err(err).Str("op", op).Msg("operation failed")
	return domain.Wrap(domain.KindTransient, domain.CodeInternal, err, fmt.Sprintf("%s Error: %s", op, err.Error()))
}
