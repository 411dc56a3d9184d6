package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Parse(string(content))
}

// views holds the parsed pages of the authorization flow.
type views struct {
	login   *template.Template
	consent *template.Template
	deny    *template.Template
	invite  *template.Template
}

func parseViews() (*views, error) {
	v := &views{}
	for name, dst := range map[string]**template.Template{
		"login.html":   &v.login,
		"consent.html": &v.consent,
		"deny.html":    &v.deny,
		"invite.html":  &v.invite,
	} {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, errors.Wrapf(err, "[server.parseViews] %s", name)
		}
		*dst = tmpl
	}
	return v, nil
}

// render executes tmpl into a buffer first so a template failure still
// produces a clean 500.
func render(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
