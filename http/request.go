package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"cardiorisk/heart"

	"github.com/go-playground/validator/v10"
)

// predictRequest 预测请求，13个字段全部必填
type predictRequest struct {
	Age      *int     `json:"age" validate:"required"`
	Sex      *int     `json:"sex" validate:"required"`
	Cp       *int     `json:"cp" validate:"required"`
	Trestbps *int     `json:"trestbps" validate:"required"`
	Chol     *int     `json:"chol" validate:"required"`
	Fbs      *int     `json:"fbs" validate:"required"`
	Restecg  *int     `json:"restecg" validate:"required"`
	Thalach  *int     `json:"thalach" validate:"required"`
	Exang    *int     `json:"exang" validate:"required"`
	Oldpeak  *float64 `json:"oldpeak" validate:"required"`
	Slope    *int     `json:"slope" validate:"required"`
	Ca       *int     `json:"ca" validate:"required"`
	Thal     *int     `json:"thal" validate:"required"`
}

func (req *predictRequest) intFields() map[string]**int {
	return map[string]**int{
		"age":      &req.Age,
		"sex":      &req.Sex,
		"cp":       &req.Cp,
		"trestbps": &req.Trestbps,
		"chol":     &req.Chol,
		"fbs":      &req.Fbs,
		"restecg":  &req.Restecg,
		"thalach":  &req.Thalach,
		"exang":    &req.Exang,
		"slope":    &req.Slope,
		"ca":       &req.Ca,
		"thal":     &req.Thal,
	}
}

// fields 校验通过后转换为领域对象
func (req *predictRequest) fields() heart.Fields {
	return heart.Fields{
		Age:      *req.Age,
		Sex:      *req.Sex,
		Cp:       *req.Cp,
		Trestbps: *req.Trestbps,
		Chol:     *req.Chol,
		Fbs:      *req.Fbs,
		Restecg:  *req.Restecg,
		Thalach:  *req.Thalach,
		Exang:    *req.Exang,
		Oldpeak:  *req.Oldpeak,
		Slope:    *req.Slope,
		Ca:       *req.Ca,
		Thal:     *req.Thal,
	}
}

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 请求校验错误，在调用模型之前返回
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// requestError 请求体本身无法解析
type requestError struct {
	status  int
	message string
}

func (e *requestError) Error() string { return e.message }

const (
	msgRequired = "field required"
	msgInteger  = "value is not a valid integer"
	msgNumber   = "value is not a valid number"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON 解析JSON请求体，逐字段检查类型以便报告所有错误字段
func decodeJSON(body io.Reader) (heart.Fields, error) {
	var raw map[string]json.RawMessage

	err := json.NewDecoder(body).Decode(&raw)
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return heart.Fields{}, &requestError{http.StatusBadRequest, "request body is empty"}
	case errors.As(err, &maxBytesErr):
		return heart.Fields{}, &requestError{http.StatusRequestEntityTooLarge, "request body too large"}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return heart.Fields{}, &requestError{http.StatusBadRequest, fmt.Sprintf("malformed JSON: %v", err)}
	case errors.As(err, &typeErr):
		return heart.Fields{}, &ValidationError{Fields: []FieldError{{Field: "body", Message: "expected a JSON object"}}}
	default:
		return heart.Fields{}, &requestError{http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err)}
	}

	var req predictRequest
	var typeErrors []FieldError
	for name, target := range req.intFields() {
		number, ok, present := jsonNumber(raw[name])
		if !present {
			continue
		}
		value, isInt := parseInteger(string(number))
		if !ok || !isInt {
			typeErrors = append(typeErrors, FieldError{Field: name, Message: msgInteger})
			continue
		}
		*target = &value
	}
	if number, ok, present := jsonNumber(raw["oldpeak"]); present {
		value, err := number.Float64()
		if !ok || err != nil {
			typeErrors = append(typeErrors, FieldError{Field: "oldpeak", Message: msgNumber})
		} else {
			req.Oldpeak = &value
		}
	}

	return checkRequest(&req, typeErrors)
}

// jsonNumber 解析单个字段，缺失或null视为未提供
func jsonNumber(raw json.RawMessage) (number json.Number, ok bool, present bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false, false
	}
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return "", false, true
	}
	number, ok = value.(json.Number)
	return number, ok, true
}

// parseInteger 接受整数以及小数部分为零的数值，如63.0或1e2
func parseInteger(raw string) (int, bool) {
	if value, err := strconv.Atoi(raw); err == nil {
		return value, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt || f >= math.MaxInt {
		return 0, false
	}
	return int(f), true
}

// decodeForm 解析表单请求
func decodeForm(r *http.Request) (heart.Fields, error) {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(32 << 10)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return heart.Fields{}, &requestError{http.StatusRequestEntityTooLarge, "request body too large"}
		}
		return heart.Fields{}, &requestError{http.StatusBadRequest, fmt.Sprintf("invalid form: %v", err)}
	}

	var req predictRequest
	var parseErrors []FieldError
	for name, target := range req.intFields() {
		raw, ok := formValue(r, name)
		if !ok {
			continue
		}
		value, ok := parseInteger(raw)
		if !ok {
			parseErrors = append(parseErrors, FieldError{Field: name, Message: msgInteger})
			continue
		}
		*target = &value
	}
	if raw, ok := formValue(r, "oldpeak"); ok {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			parseErrors = append(parseErrors, FieldError{Field: "oldpeak", Message: msgNumber})
		} else {
			req.Oldpeak = &value
		}
	}
	return checkRequest(&req, parseErrors)
}

// formValue 空字符串视为缺失
func formValue(r *http.Request, name string) (string, bool) {
	values, ok := r.PostForm[name]
	if !ok || len(values) == 0 {
		return "", false
	}
	raw := strings.TrimSpace(values[0])
	return raw, raw != ""
}

func checkRequest(req *predictRequest, known []FieldError) (heart.Fields, error) {
	problems := append([]FieldError(nil), known...)
	seen := make(map[string]bool, len(problems))
	for _, p := range problems {
		seen[p.Field] = true
	}

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return heart.Fields{}, err
		}
		for _, fe := range fieldErrs {
			if seen[fe.Field()] {
				continue
			}
			problems = append(problems, FieldError{Field: fe.Field(), Message: msgRequired})
		}
	}
	if len(problems) > 0 {
		sortByFeatureOrder(problems)
		return heart.Fields{}, &ValidationError{Fields: problems}
	}
	return req.fields(), nil
}

func sortByFeatureOrder(problems []FieldError) {
	order := make(map[string]int, heart.FeatureCount)
	for i, name := range heart.FeatureNames() {
		order[name] = i
	}
	sort.SliceStable(problems, func(i, j int) bool {
		oi, okI := order[problems[i].Field]
		oj, okJ := order[problems[j].Field]
		if !okI {
			oi = heart.FeatureCount
		}
		if !okJ {
			oj = heart.FeatureCount
		}
		return oi < oj
	})
}
