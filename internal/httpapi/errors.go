package httpapi

import (
	"net/http"

	"github.com/giro-sh/license-server/internal/errx"
)

var errRegistry = errx.NewRegistry("HTTPAPI")

var codeBadRequest = errRegistry.Register("BAD_REQUEST", errx.TypeValidation, http.StatusBadRequest, "invalid request")

func badRequest(message string) *errx.Error {
	return errRegistry.NewWithMessage(codeBadRequest, message)
}
