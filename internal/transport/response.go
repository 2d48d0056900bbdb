package transport

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const actorHeader = "X-Actor-ID"

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
}

// MismatchResponse carries the reconciliation figures of a rejected settlement.
type MismatchResponse struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	Expected     string `json:"expected"`
	Actual       string `json:"actual"`
	Difference   string `json:"difference"`
	Downpayment  string `json:"downpayment"`
	FinalPayment string `json:"final_payment"`
}

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{Success: true, Data: data})
}

// respondError maps domain errors to HTTP statuses. Anything unrecognised is
// logged and reported as a 500 without internal detail.
func respondError(c *gin.Context, err error) {
	var (
		mismatch   *entity.PaymentMismatchError
		validation *entity.ValidationError
		notFound   *entity.NotFoundError
		conflict   *entity.ConcurrencyConflictError
		bindErrs   validator.ValidationErrors
	)

	switch {
	case errors.As(err, &mismatch):
		c.JSON(http.StatusUnprocessableEntity, MismatchResponse{
			Error:        mismatch.Error(),
			Expected:     mismatch.Expected.StringFixed(2),
			Actual:       mismatch.Actual.StringFixed(2),
			Difference:   mismatch.Difference().StringFixed(2),
			Downpayment:  mismatch.Downpayment.StringFixed(2),
			FinalPayment: mismatch.FinalPayment.StringFixed(2),
		})
	case errors.As(err, &validation) && errors.Is(err, entity.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Error: validation.Error(), Field: validation.Field})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validation.Error(), Field: validation.Field})
	case errors.As(err, &bindErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingMessage(bindErrs), Field: jsonField(bindErrs[0])})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: notFound.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: conflict.Error()})
	case errors.Is(err, entity.ErrTransactionExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed with internal error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// bindError reports a malformed body. Validation failures keep their field.
func bindError(c *gin.Context, err error) {
	var bindErrs validator.ValidationErrors
	if errors.As(err, &bindErrs) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
}

func bindingMessage(errs validator.ValidationErrors) string {
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, jsonField(fe)+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

// jsonField turns the struct field name from a validation error into snake case.
func jsonField(fe validator.FieldError) string {
	name := fe.Field()
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name, Field: name})
		return uuid.Nil, false
	}
	return id, true
}

// actor reads the acting user id. Every write needs one.
func actor(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.GetHeader(actorHeader))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: actorHeader + " header is required"})
		return "", false
	}
	return id, true
}

func queryDate(c *gin.Context, name string) (*entity.Date, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	d, err := entity.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Field: name})
		return nil, false
	}
	return &d, true
}
