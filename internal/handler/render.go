package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/hitoshi/todoweb/internal/copylist"
	"github.com/hitoshi/todoweb/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// テンプレート名。
const (
	pageSetup = "setup"
	pageTodos = "todos"
)

// pageData はページテンプレートに渡す値。
type pageData struct {
	Title     string
	CSRFToken string

	// セットアップ画面
	Email string
	Error string

	// Todo一覧画面
	User      *model.User
	Todos     []model.Todo
	TodoError string
	Copy      copylist.State

	// 0より大きい場合、指定秒数後にページを再読み込みする
	RefreshSeconds int
}

// Renderer は埋め込みテンプレートからページを描画する。
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer は埋め込みテンプレートを解析してRendererを生成する。
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// render はテンプレートをバッファに描画してからレスポンスに書き込む。
// 描画に失敗した場合は部分的なHTMLを返さず500を返す。
func (rd *Renderer) render(w http.ResponseWriter, status int, name string, data *pageData) {
	var buf bytes.Buffer
	if err := rd.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("テンプレートの描画に失敗しました",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, model.MsgUnexpected, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		// クライアント切断など。ステータスは送信済みのためログのみ
		slog.Debug("レスポンスの書き込みに失敗しました",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
	}
}
