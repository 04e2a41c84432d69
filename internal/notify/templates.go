package notify

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	htemplate "html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	ttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var defaultTemplates embed.FS

// subjects por alias. Los alias sin entrada usan defaultSubject.
var subjects = map[string]string{
	"challenge":                  "Confirm your HoloPort registration",
	"success":                    "Your HoloPort is connected",
	"not-whitelisted":            "Your email is not registered",
	"error-invalid-rc":           "HoloPort registration failed: invalid registration code",
	"error-deleted-rc":           "HoloPort registration failed: registration code deleted",
	"error-invalid-config":       "HoloPort registration failed: outdated configuration",
	"error-mem-proof-generation": "HoloPort registration failed: membrane proof",
}

const defaultSubject = "HoloPort registration failed"

// Rendered es el resultado de renderizar una plantilla.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type templatePair struct {
	html *htemplate.Template
	text *ttemplate.Template
}

// Templates guarda html+txt por alias.
type Templates struct {
	byAlias map[string]templatePair
}

// LoadTemplates parsea las plantillas embebidas y, si dir no es vacío, las pisa
// con <alias>.html / <alias>.txt encontrados en dir.
func LoadTemplates(dir string) (*Templates, error) {
	t := &Templates{byAlias: map[string]templatePair{}}

	sub, err := fs.Sub(defaultTemplates, "templates")
	if err != nil {
		return nil, err
	}
	if err := t.load(sub); err != nil {
		return nil, err
	}
	if dir != "" {
		if err := t.load(os.DirFS(dir)); err != nil {
			return nil, fmt.Errorf("notify: templates dir %s: %w", dir, err)
		}
	}
	return t, nil
}

func (t *Templates) load(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		alias := strings.TrimSuffix(name, ext)

		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		pair := t.byAlias[alias]
		switch ext {
		case ".html":
			if pair.html, err = htemplate.New(alias + "_html").Option("missingkey=zero").Parse(string(b)); err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
		case ".txt":
			if pair.text, err = ttemplate.New(alias + "_txt").Option("missingkey=zero").Parse(string(b)); err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
		default:
			continue
		}
		t.byAlias[alias] = pair
	}
	return nil
}

// Has reporta si hay plantilla para alias.
func (t *Templates) Has(alias string) bool {
	p, ok := t.byAlias[alias]
	return ok && (p.html != nil || p.text != nil)
}

// Render ejecuta las plantillas de alias con model.
func (t *Templates) Render(alias string, model map[string]any) (Rendered, error) {
	p, ok := t.byAlias[alias]
	if !ok || (p.html == nil && p.text == nil) {
		return Rendered{}, fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
	}
	out := Rendered{Subject: subjects[alias]}
	if out.Subject == "" {
		out.Subject = defaultSubject
	}

	var errs []error
	if p.html != nil {
		var buf bytes.Buffer
		if err := p.html.Execute(&buf, model); err != nil {
			errs = append(errs, err)
		}
		out.HTML = buf.String()
	}
	if p.text != nil {
		var buf bytes.Buffer
		if err := p.text.Execute(&buf, model); err != nil {
			errs = append(errs, err)
		}
		out.Text = buf.String()
	}
	if err := errors.Join(errs...); err != nil {
		return Rendered{}, fmt.Errorf("notify: render %s: %w", alias, err)
	}
	return out, nil
}
