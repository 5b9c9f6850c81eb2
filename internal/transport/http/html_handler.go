package http

import (
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: sans-serif; margin: 40px; }
        .status { padding: 10px; margin: 10px 0; border-radius: 4px; background-color: #d1ecf1; color: #0c5460; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
    <div class="status">
        <strong>Version:</strong> {{.Version}}
        <br><strong>Time:</strong> {{.Time}}
    </div>
    <h2>Endpoints</h2>
    <ul>
        <li><a href="/api/v1/datasets">/api/v1/datasets</a></li>
        <li><a href="/api/health">/api/health</a></li>
        <li><a href="/api/version">/api/version</a></li>
        <li><a href="/metrics">/metrics</a></li>
        <li>/ws</li>
    </ul>
</body>
</html>
`))

// ServeIndex serves index.html from webDir, or a built-in status page when
// no frontend is installed.
func ServeIndex(webDir, title, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		indexPath := filepath.Join(webDir, "index.html")
		if webDir != "" {
			if _, err := os.Stat(indexPath); err == nil {
				setPageHeaders(w)
				http.ServeFile(w, r, indexPath)
				return
			}
		}

		setPageHeaders(w)
		err := statusPage.Execute(w, map[string]string{
			"Title":   title,
			"Version": version,
			"Time":    time.Now().Format("2006-01-02 15:04:05"),
		})
		if err != nil {
			http.Error(w, "Error rendering page", http.StatusInternalServerError)
		}
	}
}

// StaticFiles serves the frontend assets under webDir
func StaticFiles(webDir string) http.Handler {
	return http.FileServer(http.Dir(webDir))
}

func setPageHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
}
