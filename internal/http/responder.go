package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/hangr/internal/application"
	"github.com/example/hangr/internal/logging"
)

var (
	errBadRequestBody      = errors.New("La solicitud no tiene un formato válido.")
	errMissingSessionToken = errors.New("Necesitas iniciar sesión.")
	errMissingClientKey    = errors.New("Falta la sesión del navegador.")
	errInvalidQuery        = errors.New("Los parámetros de búsqueda no son válidos.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeBytes(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps application errors to a status code and a
// user-facing message. Server errors are never retried by clients.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "El email o la contraseña no son correctos.",
		})
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "Tu sesión ha caducado. Vuelve a iniciar sesión.",
		})
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   localizedStatusMessage(http.StatusUnauthorized),
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
	case errors.Is(err, application.ErrAlreadyJoined):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "PLAN_ALREADY_JOINED",
			Message:   "Ya te has unido a este plan.",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "Ya existe una cuenta con ese email.",
		})
	case errors.Is(err, application.ErrChatExpired):
		r.writeJSON(ctx, w, http.StatusGone, errorResponse{
			ErrorCode: "CHAT_EXPIRED",
			Message:   "El chat de este plan ya se ha cerrado.",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: localizedStatusMessage(http.StatusUnprocessableEntity),
				Errors:  localizeValidationErrors(vErr),
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err, "error_kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	return logging.Or(ctx, r.logger)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "La solicitud no es correcta."
	case http.StatusUnauthorized:
		return "Necesitas iniciar sesión."
	case http.StatusNotFound:
		return "No encontramos lo que buscas."
	case http.StatusConflict:
		return "La operación entra en conflicto con el estado actual."
	case http.StatusGone:
		return "Este recurso ya no está disponible."
	case http.StatusUnprocessableEntity:
		return "Revisa los datos introducidos."
	default:
		return "Algo ha fallado. Inténtalo de nuevo más tarde."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, code := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(field, code)
	}
	return translated
}

func translateValidationMessage(field, code string) string {
	switch {
	case field == "password" && code == "too_short":
		return "La contraseña debe tener al menos 8 caracteres."
	case field == "date" && code == "malformed":
		return "La fecha debe tener el formato AAAA-MM-DD."
	case field == "scheduled_at" && code == "in_past":
		return "La fecha del plan no puede estar en el pasado."
	}

	switch code {
	case "required":
		return "Este campo es obligatorio."
	case "too_long":
		return "El texto es demasiado largo."
	case "invalid":
		return "El formato no es válido."
	case "unknown":
		return "El valor no está permitido."
	case "out_of_range":
		return "Las coordenadas están fuera de rango."
	default:
		return code
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
