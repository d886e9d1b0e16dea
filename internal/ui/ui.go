// Package ui serves the browser controller: a slider that reads and writes
// the delay through the same route devices poll.
package ui

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/3xpluto/go-delay-control/internal/delay"
)

//go:embed controller.html
var controllerHTML string

var page = template.Must(template.New("controller").Parse(controllerHTML))

type pageData struct {
	Route   string
	Min     int
	Max     int
	Default int
	Step    int
}

// Step picks the slider increment: 100 for the canonical range, finer for
// narrow ones.
func Step(b delay.Bounds) int {
	span := b.Max - b.Min
	switch {
	case span >= 1000:
		return 100
	case span >= 100:
		return 10
	default:
		return 1
	}
}

// Handler renders the page once and serves it on "/" only.
func Handler(route string, b delay.Bounds) (http.Handler, error) {
	var buf bytes.Buffer
	err := page.Execute(&buf, pageData{
		Route:   route,
		Min:     b.Min,
		Max:     b.Max,
		Default: b.Default,
		Step:    Step(b),
	})
	if err != nil {
		return nil, err
	}
	body := buf.Bytes()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(body)
		}
	}), nil
}
