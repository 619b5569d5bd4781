package api

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/v2/bson"

	"taskflow/domain"
)

const bodyMaxSize = 1 * 1024 * 1024 // 1 MiB

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindBody decodes and validates a request payload. Unknown fields are
// rejected, which is also what keeps ownership fields immutable: they do
// not exist on any payload struct.
func bindBody(c echo.Context, out any) error {
	if err := decodeBody(c, out); err != nil {
		return err
	}
	return checkPayload(out)
}

// decodeBody decodes without validating, for handlers that fill in
// path-derived fields before the validation pass.
func decodeBody(c echo.Context, out any) error {
	lr := io.LimitReader(c.Request().Body, bodyMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return domain.ValidationError{Fields: []string{"body"}}
	}
	return nil
}

func checkPayload(out any) error {
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return domain.ValidationError{Fields: fields}
		}
		return domain.ValidationError{}
	}
	return nil
}

type registerPayload struct {
	Name     string `json:"name" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=admin manager member"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type profilePayload struct {
	Name  *string `json:"name" validate:"omitempty,max=50"`
	Email *string `json:"email" validate:"omitempty,email"`
}

func (p profilePayload) fields() bson.M {
	f := bson.M{}
	if p.Name != nil {
		f["name"] = *p.Name
	}
	if p.Email != nil {
		f["email"] = *p.Email
	}
	return f
}

type passwordPayload struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type projectCreatePayload struct {
	Name        string    `json:"name" validate:"required,max=100"`
	Description string    `json:"description" validate:"required,max=1000"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required"`
	Status      string    `json:"status" validate:"omitempty,oneof=planning active on-hold completed"`
}

type projectUpdatePayload struct {
	Name        *string    `json:"name" validate:"omitempty,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
	Status      *string    `json:"status" validate:"omitempty,oneof=planning active on-hold completed"`
}

func (p projectUpdatePayload) fields() bson.M {
	f := bson.M{}
	if p.Name != nil {
		f["name"] = *p.Name
	}
	if p.Description != nil {
		f["description"] = *p.Description
	}
	if p.StartDate != nil {
		f["startDate"] = *p.StartDate
	}
	if p.EndDate != nil {
		f["endDate"] = *p.EndDate
	}
	if p.Status != nil {
		f["status"] = *p.Status
	}
	return f
}

type memberAddPayload struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=admin manager member"`
}

type taskCreatePayload struct {
	Title       string     `json:"title" validate:"required,max=100"`
	Description string     `json:"description" validate:"omitempty,max=1000"`
	ProjectID   string     `json:"projectId" validate:"required"`
	AssigneeID  string     `json:"assigneeId"`
	Status      string     `json:"status" validate:"omitempty,oneof=todo in-progress done"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"dueDate"`
}

type taskUpdatePayload struct {
	Title       *string    `json:"title" validate:"omitempty,max=100"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	AssigneeID  *string    `json:"assigneeId"`
	Status      *string    `json:"status" validate:"omitempty,oneof=todo in-progress done"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"dueDate"`
}

func (p taskUpdatePayload) fields() bson.M {
	f := bson.M{}
	if p.Title != nil {
		f["title"] = *p.Title
	}
	if p.Description != nil {
		f["description"] = *p.Description
	}
	if p.AssigneeID != nil {
		f["assigneeId"] = *p.AssigneeID
	}
	if p.Status != nil {
		f["status"] = *p.Status
	}
	if p.Priority != nil {
		f["priority"] = *p.Priority
	}
	if p.DueDate != nil {
		f["dueDate"] = *p.DueDate
	}
	return f
}

type taskStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=todo in-progress done"`
}

type commentCreatePayload struct {
	Content string `json:"content" validate:"required,max=1000"`
	TaskID  string `json:"taskId" validate:"required"`
}

type commentUpdatePayload struct {
	Content *string `json:"content" validate:"omitempty,min=1,max=1000"`
}

func (p commentUpdatePayload) fields() bson.M {
	f := bson.M{}
	if p.Content != nil {
		f["content"] = *p.Content
	}
	return f
}
