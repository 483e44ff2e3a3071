package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/pavelanni/interviewer/internal/i18n"
)

const maxBodyBytes = 32 << 20

var (
	validate = newValidator()
	trans    ut.Translator
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	enLocale := en.New()
	trans, _ = ut.New(enLocale, enLocale).GetTranslator("en")
	if err := entranslations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(err)
	}
	return v
}

// translateErrors returns field name to message for a validation error.
func translateErrors(err error) map[string]string {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}
	fields["detail"] = err.Error()
	return fields
}

// bind decodes and validates a JSON body into dst and writes a 400 on
// failure. allowEmpty accepts a missing body as the zero value.
func bind(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) && allowEmpty {
		err = nil
	}
	if err == nil {
		err = validate.Struct(dst)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  i18n.T(r.Context(), "ErrInvalidRequest"),
			Fields: translateErrors(err),
		})
		return false
	}
	return true
}
