package validation

import (
	"errors"
	"net/http"
	"testing"

	"github.com/deppfellow/magnetite/internal/errs"
	"github.com/deppfellow/magnetite/internal/model"
	"github.com/google/uuid"
)

func TestStructAcceptsValidEntities(t *testing.T) {
	if err := Struct(model.Page{Path: "/about"}); err != nil {
		t.Fatalf("valid page rejected: %v", err)
	}
	if err := Struct(model.AdminUser{ID: uuid.New(), Username: "root"}); err != nil {
		t.Fatalf("valid user rejected: %v", err)
	}
}

func TestStructRejections(t *testing.T) {
	tests := []struct {
		name   string
		entity any
		field  string
		msg    string
	}{
		{"empty path", model.Page{}, "path", "is required"},
		{"relative path", model.Page{Path: "about"}, "path", `must start with "/"`},
		{"nil user id", model.AdminUser{Username: "root"}, "id", "is required"},
		{"missing username", model.AdminUser{ID: uuid.New()}, "username", "is required"},
		{"bad email", model.AdminUser{ID: uuid.New(), Username: "root", Email: "nope"}, "email", "must be a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.entity)
			if !errors.Is(err, errs.ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}

			httpErr := ToHTTPError(err)
			if httpErr == nil || httpErr.Status != http.StatusBadRequest {
				t.Fatalf("http error = %+v, want 400", httpErr)
			}
			if len(httpErr.Errors) != 1 {
				t.Fatalf("field errors = %+v, want exactly one", httpErr.Errors)
			}
			if got := httpErr.Errors[0]; got.Field != tt.field || got.Error != tt.msg {
				t.Fatalf("field error = %+v, want %s %q", got, tt.field, tt.msg)
			}
		})
	}
}

func TestToHTTPErrorIgnoresOtherErrors(t *testing.T) {
	if got := ToHTTPError(errs.ErrNotFound); got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}
