package generate

import (
	"bytes"
	"fmt"
	"path/filepath"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"jsg/config"
	"jsg/jsidl"
)

// templateValues is the data available to the output name template.
type templateValues struct {
	// message name
	Name string
	// normalized hex id
	MessageID string
	IsCommand bool
	// base name of the definition document the message came from
	Source string
}

// schemaFileName decides the file name for a translated message. The
// default is "<name>_<id>.json"; a configured template replaces the stem
// and transliteration squeezes it into a portable form when asked to.
func (g *generator) schemaFileName(m *jsidl.MessageDef, doc *jsidl.Document) string {
	name := fmt.Sprintf("%s_%s", m.Name, m.MessageID)

	if tmpl := g.env.Cfg.Generator.OutputNameTemplate; len(tmpl) > 0 {
		v := templateValues{
			Name:      m.Name,
			MessageID: m.MessageID,
			IsCommand: m.IsCommand,
			Source:    filepath.Base(doc.Path),
		}
		expanded, err := expandNameTemplate(config.OutputNameTemplateFieldName, tmpl, v)
		if err != nil {
			g.log.Warn("Unable to expand output name template, using default name",
				zap.String("message", m.Name),
				zap.Error(err))
		} else if len(expanded) > 0 {
			name = expanded
		}
	}

	if g.env.Cfg.Generator.FileNameTransliterate {
		name = slug.Make(name)
	}
	return config.CleanFileName(name) + ".json"
}

func expandNameTemplate(name config.TemplateFieldName, field string, v templateValues) (string, error) {
	tmpl, err := template.New(string(name)).Funcs(sprig.FuncMap()).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template %q: %w", field, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("unable to expand template %q: %w", field, err)
	}
	return buf.String(), nil
}
