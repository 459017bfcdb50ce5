package commands

import (
	"fmt"
	"os"

	"git.home.luguber.info/inful/texsync/internal/compiler"
	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/metadata"
)

// CheckCmd implements the 'check' command. It runs the header extraction and
// schema validation a job would apply, without contacting Notion.
type CheckCmd struct {
	File string `arg:"" help:"Markdown file to check" type:"existingfile"`
}

func (c *CheckCmd) Run(g *Global, root *CLI) error {
	schema := metadata.DefaultSchema()
	if _, err := os.Stat(root.Config); err == nil {
		cfg, err := root.loadConfig(g)
		if err != nil {
			return err
		}
		schema = metadata.NewSchema(cfg.Schema.Required, cfg.Schema.Forbidden)
	}

	raw, err := os.ReadFile(c.File)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to read markdown file").
			WithContext("path", c.File).
			Build()
	}

	title, err := checkDocument(string(raw), schema)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(os.Stdout, title)
	return nil
}

func checkDocument(raw string, schema metadata.Schema) (string, error) {
	fields, _, err := metadata.Extract(raw)
	if err != nil {
		return "", err
	}
	validated, err := schema.Validate(fields)
	if err != nil {
		return "", err
	}
	return compiler.DeriveTitle(validated)
}
