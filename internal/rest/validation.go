package rest

import (
	"errors"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sanLimbu/esindex/internal"
)

type validationErrors struct {
	errs validation.Errors
}

func (v validationErrors) Error() string {
	return v.errs.Error()
}

func (v validationErrors) fields() map[string]string {
	res := make(map[string]string, len(v.errs))
	for k, err := range v.errs {
		res[k] = err.Error()
	}

	return res
}

//validate wraps ozzo field errors in an InvalidArgument error, rendered as a 400.
func validate(v validation.Validatable) error {
	err := v.Validate()
	if err == nil {
		return nil
	}

	var errs validation.Errors
	if errors.As(err, &errs) {
		return internal.WrapErrorf(validationErrors{errs: errs}, internal.ErrorCodeInvalidArgument, "invalid request")
	}

	return internal.WrapErrorf(err, internal.ErrorCodeInvalidArgument, "invalid request")
}

//PageParams are the paging query parameters.
type PageParams struct {
	Limit  *int
	Offset int
}

//Validate ...
func (p PageParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Limit, validation.Min(0)),
		validation.Field(&p.Offset, validation.Min(0)),
	)
}

//SimpleSearchParams are the query parameters of GET /search.
type SimpleSearchParams struct {
	Keywords string
	Field    string
	Limit    int
	Offset   int
}

//Validate ...
func (p SimpleSearchParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Field, validation.When(p.Keywords != "", validation.Required)),
		validation.Field(&p.Limit, validation.Min(0)),
		validation.Field(&p.Offset, validation.Min(0)),
	)
}

//intParam parses an optional integer query parameter.
func intParam(values map[string][]string, key string) (*int, error) {
	raw, ok := values[key]
	if !ok || len(raw) == 0 || raw[0] == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(raw[0])
	if err != nil {
		return nil, internal.WrapErrorf(validationErrors{errs: validation.Errors{key: errors.New("must be an integer")}},
			internal.ErrorCodeInvalidArgument, "invalid request")
	}

	return &n, nil
}

func valueOrZero(n *int) int {
	if n == nil {
		return 0
	}

	return *n
}
