package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-listings/internal/contracts"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

// bindJSON validates the raw body against a schema and decodes it into dst.
func bindJSON(c *fiber.Ctx, validator *contracts.Validator, schema contracts.Schema, dst any) error {
	body := c.Body()
	if validator != nil {
		if err := validator.Validate(schema, body); err != nil {
			var verr *contracts.ValidationError
			if errors.As(err, &verr) {
				return apperrors.NewValidationError(verr.Message, verr.Details())
			}
			return err
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.NewValidationError("invalid JSON payload", nil)
	}
	return nil
}
