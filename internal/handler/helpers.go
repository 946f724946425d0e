package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/tntan04/quan-ly-mua-sam/internal/apierror"
	"github.com/tntan04/quan-ly-mua-sam/internal/middleware"
	"github.com/tntan04/quan-ly-mua-sam/internal/model"
	"github.com/tntan04/quan-ly-mua-sam/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal validates as a number so min=0 and gt=0 work on money.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = validate.RegisterValidation("department", func(fl validator.FieldLevel) bool {
		return model.IsDepartment(fl.Field().String())
	})

	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
}

// bindAndValidate binds the JSON body and runs the validator tags. It writes
// the 400 response itself and returns false on failure.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Dữ liệu gửi lên không đúng định dạng JSON"))
		return false
	}
	return validateValue(c, req)
}

// bindQuery binds and validates query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Tham số truy vấn không hợp lệ"))
		return false
	}
	return validateValue(c, req)
}

func validateValue(c *gin.Context, v interface{}) bool {
	var err error
	if rv := reflect.Indirect(reflect.ValueOf(v)); rv.Kind() == reflect.Slice {
		err = validate.Var(rv.Interface(), "dive")
	} else {
		err = validate.Struct(v)
	}
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, apierror.New("Dữ liệu không hợp lệ"))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fe.Tag()
	}
	c.JSON(http.StatusBadRequest, apierror.NewValidation(fields))
	return false
}

// fieldPath drops the root type name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// bindOneOrMany decodes a body that is either one object or an array of
// objects. many reports which form was sent.
func bindOneOrMany[T any](c *gin.Context) (one *T, many []T, ok bool) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Không đọc được dữ liệu gửi lên"))
		return nil, nil, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &many); err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("Dữ liệu gửi lên không đúng định dạng JSON"))
			return nil, nil, false
		}
		if many == nil {
			many = []T{}
		}
		return nil, many, validateValue(c, many)
	}
	one = new(T)
	if err := json.Unmarshal(trimmed, one); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Dữ liệu gửi lên không đúng định dạng JSON"))
		return nil, nil, false
	}
	return one, nil, validateValue(c, one)
}

// paramID parses a UUID path parameter, answering 400 when malformed.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Mã định danh không hợp lệ"))
		return uuid.Nil, false
	}
	return id, true
}

// actorFrom builds the service actor from the token claims.
func actorFrom(c *gin.Context) (service.Actor, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, apierror.New("Vui lòng đăng nhập"))
		return service.Actor{}, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New("Phiên đăng nhập không hợp lệ hoặc đã hết hạn"))
		return service.Actor{}, false
	}
	actor := service.Actor{UserID: id, Email: claims.Email, Role: claims.Role, Department: claims.Department}
	if claims.UnitID != nil {
		if unit, err := uuid.Parse(*claims.UnitID); err == nil {
			actor.UnitID = &unit
		}
	}
	return actor, true
}

// respondError maps a service error onto its HTTP status. Unknown errors are
// logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	msg := service.Message(err)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConnectivity), errors.Is(err, service.ErrConsistency):
		log.Error().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("handler: store failure")
	default:
		_ = c.Error(err)
		msg = "Lỗi hệ thống, vui lòng thử lại sau"
	}
	if msg == "" {
		msg = "Lỗi hệ thống, vui lòng thử lại sau"
	}
	c.JSON(status, apierror.New(msg))
}

// dataSourceHeader tells clients whether a list came from the snapshot store.
const dataSourceHeader = "X-Data-Source"

func setDataSource(c *gin.Context, source string) {
	c.Header(dataSourceHeader, source)
}
