package audithttp

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/campus/internal/audit"
	"github.com/odyssey-erp/campus/internal/rbac"
)

const (
	dateLayout       = "2006-01-02"
	defaultPageSize  = 20
	maxPageSize      = 50
	defaultRangeDays = 7
	maxRangeDays     = 90
)

// timelineQuery is the raw query string accepted by the login timeline.
type timelineQuery struct {
	From     string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	To       string `query:"to" validate:"omitempty,datetime=2006-01-02"`
	UserID   string `query:"user" validate:"omitempty,max=64,printascii"`
	Role     string `query:"role" validate:"omitempty,campusrole"`
	Page     string `query:"page" validate:"omitempty,positiveint=100000"`
	PageSize string `query:"page_size" validate:"omitempty,positiveint"`
}

var queryValidator = newQueryValidator()

func newQueryValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("query")
	})
	if err := v.RegisterValidation("campusrole", func(fl validator.FieldLevel) bool {
		return rbac.IsValidRole(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	// positiveint=N additionally caps the value at N.
	if err := v.RegisterValidation("positiveint", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Field().String())
		if err != nil || n <= 0 {
			return false
		}
		if limit, err := strconv.Atoi(fl.Param()); err == nil {
			return n <= limit
		}
		return true
	}); err != nil {
		panic(err)
	}
	return v
}

// filterError names the query parameter that failed validation.
type filterError struct {
	field string
}

func (e filterError) Error() string {
	return "invalid filter: " + e.field
}

func readQuery(r *http.Request) timelineQuery {
	vals := r.URL.Query()
	get := func(key string) string { return strings.TrimSpace(vals.Get(key)) }
	return timelineQuery{
		From:     get("from"),
		To:       get("to"),
		UserID:   get("user"),
		Role:     get("role"),
		Page:     get("page"),
		PageSize: get("page_size"),
	}
}

// parseFilters validates the query and resolves the date window relative to
// now. Dates are whole UTC days; the upper bound is inclusive.
func parseFilters(r *http.Request, now time.Time) (audit.TimelineFilters, error) {
	q := readQuery(r)
	if err := queryValidator.Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return audit.TimelineFilters{}, filterError{field: fieldErrs[0].Field()}
		}
		return audit.TimelineFilters{}, err
	}

	today := now.UTC().Truncate(24 * time.Hour)
	to := dateOr(q.To, today)
	from := dateOr(q.From, to.AddDate(0, 0, -defaultRangeDays))
	if from.After(to) || to.Sub(from) > maxRangeDays*24*time.Hour {
		return audit.TimelineFilters{}, filterError{field: "range"}
	}

	return audit.TimelineFilters{
		From:     from,
		To:       to.AddDate(0, 0, 1),
		UserID:   q.UserID,
		Role:     q.Role,
		Page:     intOr(q.Page, 1),
		PageSize: min(intOr(q.PageSize, defaultPageSize), maxPageSize),
	}, nil
}

// dateOr parses an already validated date, falling back to def when empty.
func dateOr(value string, def time.Time) time.Time {
	if value == "" {
		return def
	}
	t, _ := time.Parse(dateLayout, value)
	return t
}

func intOr(value string, def int) int {
	if value == "" {
		return def
	}
	n, _ := strconv.Atoi(value)
	return n
}
