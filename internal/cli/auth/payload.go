package auth

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report json names ("username") rather than Go field names
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Credentials identify a user at login
type Credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Validate checks that both fields are present
func (c Credentials) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate credentials: %w", err)
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields}
}

// FormValue is one value of a registration form
type FormValue interface {
	writeTo(w *multipart.Writer, name string) error
}

// Text is a plain form field
type Text string

func (t Text) writeTo(w *multipart.Writer, name string) error {
	return w.WriteField(name, string(t))
}

// File is an uploaded file part, e.g. a profile picture or company logo
type File struct {
	Filename    string
	ContentType string // defaults to application/octet-stream
	Content     io.Reader
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (f File) writeTo(w *multipart.Writer, name string) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(name), quoteEscaper.Replace(f.Filename)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if f.Content == nil {
		return nil
	}
	_, err = io.Copy(part, f.Content)
	return err
}

// RegistrationPayload maps form field names to values. Nil values are left
// out of the submitted form.
type RegistrationPayload map[string]FormValue

func absent(v FormValue) bool {
	switch v := v.(type) {
	case nil:
		return true
	case *File:
		return v == nil
	case *Text:
		return v == nil
	default:
		return false
	}
}

// Fields lists the names that will be submitted, sorted
func (p RegistrationPayload) Fields() []string {
	names := make([]string, 0, len(p))
	for name, v := range p {
		if !absent(v) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// text returns a text field's value, or "" when missing or not text
func (p RegistrationPayload) text(name string) string {
	switch v := p[name].(type) {
	case Text:
		return string(v)
	case *Text:
		if v != nil {
			return string(*v)
		}
	}
	return ""
}

// encode builds the multipart body. Fields are written in sorted order.
func (p RegistrationPayload) encode() (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, name := range p.Fields() {
		if err := p[name].writeTo(w, name); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish form: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
