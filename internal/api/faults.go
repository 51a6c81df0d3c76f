package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/taskfabric/gateway/pkg/downstream"
)

// RespondWithFault translates a downstream failure into a client-facing
// HTTP response. The mapping is total: every error produces a response,
// and nothing internal leaks on the unclassified path.
//
//	circuit open → 503
//	timeout      → 504
//	transient    → original downstream status and message
//	client       → original downstream status and message
//	anything else → 500 with a generic message
func RespondWithFault(w http.ResponseWriter, logger zerolog.Logger, err error) {
	fault, ok := downstream.AsFault(err)
	if !ok {
		logger.Error().Err(err).Msg("unclassified handler error")
		RespondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch fault.Class {
	case downstream.ClassCircuitOpen:
		logger.Warn().Str("target", fault.Target).Msg("rejecting request, circuit open")
		RespondWithError(w, http.StatusServiceUnavailable,
			fault.Target+" service is temporarily unavailable")

	case downstream.ClassTimeout:
		logger.Warn().Str("target", fault.Target).Msg("downstream call timed out")
		RespondWithError(w, http.StatusGatewayTimeout,
			fault.Target+" service did not respond in time")

	case downstream.ClassTransient, downstream.ClassClient:
		status := fault.StatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		message := fault.Message
		if message == "" {
			message = http.StatusText(status)
		}
		RespondWithError(w, status, message)

	default:
		logger.Error().Err(fault).Str("target", fault.Target).Msg("unclassified downstream fault")
		RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
