package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chat-conversations/internal/domain"
	"chat-conversations/internal/i18n"
	applog "chat-conversations/internal/log"
	"chat-conversations/internal/usecase"
)

const (
	headerCorrelationID  = "X-Correlation-Id"
	headerAcceptLanguage = "Accept-Language"
)

type MessagePoster interface {
	Post(ctx context.Context, in usecase.PostMessageInput) (usecase.PostMessageOutput, error)
}

type TextResolver interface {
	Text(ctx context.Context, acceptLanguage string, key i18n.Key) string
}

type Handler struct {
	svc    MessagePoster
	texts  TextResolver
	logger zerolog.Logger
}

type historyResponse struct {
	Messages []domain.HistoryEntry `json:"messages"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func NewHandler(svc MessagePoster, texts TextResolver, logger zerolog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: message service must not be nil")
	}
	if texts == nil {
		return nil, errors.New("handler: text resolver must not be nil")
	}
	return &Handler{svc: svc, texts: texts, logger: logger}, nil
}

// Handle serves one API Gateway proxy request. Every failure is converted to
// a response; the returned error is always nil.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	start := time.Now()
	corrID := headerValue(req.Headers, headerCorrelationID)
	if corrID == "" {
		corrID = newCorrelationID()
	}
	lang := headerValue(req.Headers, headerAcceptLanguage)

	logger := h.logger.With().
		Str(applog.FieldCorrelationID, corrID).
		Str(applog.FieldMethod, req.HTTPMethod).
		Str(applog.FieldPath, req.Path).
		Logger()
	ctx = applog.WithLogger(ctx, logger)

	defer func() {
		if r := recover(); r != nil {
			resp = h.errorResponse(ctx, corrID, lang, newPanicError(r))
			err = nil
		}
		logger.Info().
			Int(applog.FieldStatus, resp.StatusCode).
			Int64(applog.FieldLatency, time.Since(start).Milliseconds()).
			Msg("request completed")
	}()

	body := req.Body
	if req.IsBase64Encoded {
		raw, decErr := base64.StdEncoding.DecodeString(body)
		if decErr != nil {
			return h.errorResponse(ctx, corrID, lang, &usecase.Error{Code: usecase.ErrorMalformedRequest, Reason: "invalid_base64", Err: decErr}), nil
		}
		body = string(raw)
	}

	in, decErr := usecase.DecodeRequest(body)
	if decErr != nil {
		return h.errorResponse(ctx, corrID, lang, decErr), nil
	}

	out, postErr := h.svc.Post(ctx, in)
	if postErr != nil {
		return h.errorResponse(ctx, corrID, lang, postErr), nil
	}

	msgs := out.Messages
	if msgs == nil {
		msgs = []domain.HistoryEntry{}
	}
	return jsonResponse(http.StatusOK, corrID, historyResponse{Messages: msgs}), nil
}

func (h *Handler) errorResponse(ctx context.Context, corrID, lang string, err error) events.APIGatewayProxyResponse {
	code := usecase.ErrorInternal
	reason := "unexpected"
	var usecaseErr *usecase.Error
	if errors.As(err, &usecaseErr) {
		code = usecaseErr.Code
		reason = usecaseErr.Reason
	}
	status, key := statusFor(code)

	logger := applog.Ctx(ctx)
	var ev *zerolog.Event
	if status >= http.StatusInternalServerError {
		ev = logger.Error().Err(err)
	} else {
		ev = logger.Info()
	}
	ev.Str(applog.FieldErrorCode, string(code)).Str(applog.FieldReason, reason).Msg("request failed")

	return jsonResponse(status, corrID, errorResponse{
		Message: h.texts.Text(ctx, lang, key),
		Error:   string(code),
	})
}

func statusFor(code usecase.ErrorCode) (int, i18n.Key) {
	switch code {
	case usecase.ErrorMalformedRequest:
		return http.StatusBadRequest, i18n.KeyBadRequest
	case usecase.ErrorPermissionDenied:
		return http.StatusForbidden, i18n.KeyForbidden
	default:
		return http.StatusInternalServerError, i18n.KeyError
	}
}

func jsonResponse(status int, corrID string, v any) events.APIGatewayProxyResponse {
	b, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"message":"internal error","error":"INTERNAL_ERROR"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":      "application/json",
			headerCorrelationID: corrID,
		},
		Body: string(b),
	}
}

// headerValue looks up a header case-insensitively.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func newPanicError(r any) error {
	return &usecase.Error{Code: usecase.ErrorInternal, Reason: "panic", Err: fmt.Errorf("panic: %v", r)}
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
