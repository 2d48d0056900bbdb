package transport

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/lifecycle"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the catering binding tags to gin's validator:
//
//	servicetype  food-only | service-only | mixed
//	hhmm         24-hour HH:MM
//	money        non-negative with at most two decimal places
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		registerErr = register(v)
	})
	return registerErr
}

func register(v *validator.Validate) error {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{}, decimal.NullDecimal{})

	validators := map[string]validator.Func{
		"servicetype": func(fl validator.FieldLevel) bool {
			return entity.ServiceType(fl.Field().String()).Valid()
		},
		"hhmm": func(fl validator.FieldLevel) bool {
			_, _, err := lifecycle.ParseEventTime(fl.Field().String())
			return err == nil
		},
		"money": func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			if err != nil {
				return false
			}
			return !d.IsNegative() && d.Equal(d.Round(2))
		},
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// decimalValue exposes decimals to tag validation as strings; an unset
// NullDecimal reads as absent.
func decimalValue(field reflect.Value) interface{} {
	switch v := field.Interface().(type) {
	case decimal.Decimal:
		return v.String()
	case decimal.NullDecimal:
		if !v.Valid {
			return nil
		}
		return v.Decimal.String()
	}
	return nil
}
