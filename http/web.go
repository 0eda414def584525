package http

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"

	"cardiorisk/heart"
)

//go:embed templates/index.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

var inputLabels = map[string]string{
	"age":      "Age",
	"sex":      "Sex (1 = male, 0 = female)",
	"cp":       "Chest pain type (0-3)",
	"trestbps": "Resting blood pressure",
	"chol":     "Serum cholesterol (mg/dl)",
	"fbs":      "Fasting blood sugar > 120 mg/dl",
	"restecg":  "Resting ECG (0-2)",
	"thalach":  "Max heart rate achieved",
	"exang":    "Exercise induced angina",
	"oldpeak":  "ST depression (oldpeak)",
	"slope":    "Slope of peak ST segment",
	"ca":       "Major vessels colored (0-4)",
	"thal":     "Thalassemia (0-3)",
}

type pageInput struct {
	Name  string
	Label string
	Step  string
	Value string
}

// pageData 模板数据
type pageData struct {
	Inputs   []pageInput
	Errors   []FieldError
	Result   string
	Positive bool
}

func newPageData(r *http.Request) pageData {
	data := pageData{}
	for _, name := range heart.FeatureNames() {
		step := "1"
		if name == "oldpeak" {
			step = "0.1"
		}
		value := ""
		if r != nil && r.PostForm != nil {
			value = r.PostForm.Get(name)
		}
		data.Inputs = append(data.Inputs, pageInput{
			Name:  name,
			Label: inputLabels[name],
			Step:  step,
			Value: value,
		})
	}
	return data
}

// renderPage 渲染页面，先写入缓冲区以便模板错误时返回500
func renderPage(w http.ResponseWriter, status int, data pageData) error {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
