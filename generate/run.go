package generate

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"jsg/archive"
	"jsg/jsidl"
	"jsg/misc"
	"jsg/state"
)

// Run is the "generate" command action. It enumerates interface definition
// documents under SOURCE (a directory or a zip archive), translates every
// message definition into a schema file under DESTINATION and finishes with
// the lookup tables the configuration asks for.
func Run(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		// nothing to do, we are outta here
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("generate")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("unable to get absolute path for input source: %w", err)
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
		dst = filepath.Join(wd, "schemes")
	}
	dst, err = filepath.Abs(dst)
	if err != nil {
		return fmt.Errorf("unable to get absolute path for destination: %w", err)
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	exclude := append(slices.Clone(env.Cfg.Generator.Exclude), cmd.StringSlice("exclude")...)

	tablesDir := env.Cfg.Generator.Tables.Destination
	if s := cmd.String("tables"); len(s) > 0 {
		tablesDir = s
	}
	if len(tablesDir) > 0 {
		if tablesDir, err = filepath.Abs(tablesDir); err != nil {
			return fmt.Errorf("unable to get absolute path for tables destination: %w", err)
		}
	}

	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		if enc, err := ianaindex.IANA.Encoding(cp); err != nil || enc == nil {
			log.Warn("Unknown code page requested, ignoring", zap.String("codepage", cp))
		} else {
			env.CodePage = enc
			log.Debug("Forcing code page for archive file names", zap.String("codepage", cp))
		}
	}

	log.Info("Processing starting",
		zap.String("source", src),
		zap.String("destination", dst),
		zap.String("tables", tablesDir))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	fi, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("unable to access input source: %w", err)
	}
	switch {
	case fi.Mode().IsRegular():
		if !strings.EqualFold(filepath.Ext(src), ".zip") {
			return fmt.Errorf("input source %s is not a directory or zip archive", src)
		}
		extracted, err := extractArchive(ctx, src, env, log)
		if err != nil {
			return err
		}
		if env.Rpt != nil {
			// stored directories are disposed of when the report is closed
			env.Rpt.Store("input", extracted)
		} else {
			defer os.RemoveAll(extracted)
		}
		src = extracted
	case fi.IsDir():
	default:
		return fmt.Errorf("input source %s is not a directory or zip archive", src)
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("unable to create destination directory: %w", err)
	}

	cache := jsidl.NewCache(log)
	if err := cache.Scan(src, exclude); err != nil {
		return err
	}
	if len(cache.Paths()) == 0 {
		log.Warn("No definition documents found", zap.String("source", src))
	}

	g := newGenerator(env, cache, dst, log)
	if err := g.run(ctx); err != nil {
		return err
	}
	g.logSummary()

	if len(tablesDir) > 0 {
		if err := os.MkdirAll(tablesDir, 0755); err != nil {
			return fmt.Errorf("unable to create tables directory: %w", err)
		}
		if env.Cfg.Generator.Tables.TypeScript {
			if err := g.writeTypeScriptTables(tablesDir); err != nil {
				return err
			}
			log.Info("Lookup tables written", zap.String("destination", tablesDir))
		}
		if env.Cfg.Generator.Tables.Catalog {
			path := filepath.Join(tablesDir, catalogFile)
			if err := g.writeCatalog(path); err != nil {
				return err
			}
			log.Info("Catalog written", zap.String("destination", path))
		}
	}

	g.storeSummary()
	return nil
}

// extractArchive unpacks definition documents from a zip archive into a
// scratch directory which then serves as the input source.
func extractArchive(ctx context.Context, path string, env *state.LocalEnv, log *zap.Logger) (string, error) {
	dir, err := os.MkdirTemp("", misc.GetAppName()+"-")
	if err != nil {
		return "", fmt.Errorf("unable to create scratch directory: %w", err)
	}

	err = archive.Walk(path, ".xml", func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := f.Name
		if f.NonUTF8 && env.CodePage != nil {
			if decoded, err := env.CodePage.NewDecoder().String(name); err == nil {
				name = decoded
			} else {
				log.Warn("Unable to decode archived file name, using as is",
					zap.String("file", f.Name), zap.Error(err))
			}
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}
		return copyEntry(f, target)
	})
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("unable to unpack %s: %w", path, err)
	}
	log.Debug("Archive unpacked", zap.String("archive", path), zap.String("dir", dir))
	return dir, nil
}

func copyEntry(f *zip.File, target string) error {
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	w, err := os.Create(target)
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := io.Copy(w, r); err != nil {
		return err
	}
	return w.Sync()
}

type failureSummary struct {
	Name  string `json:"name,omitempty"`
	File  string `json:"file"`
	Error string `json:"error"`
}

type runSummary struct {
	RunID      string              `json:"runId"`
	Found      int                 `json:"found"`
	Written    int                 `json:"written"`
	Messages   []*messageRecord    `json:"messages"`
	Services   map[string]string   `json:"services,omitempty"`
	Duplicates []duplicate         `json:"duplicates,omitempty"`
	Failures   []failureSummary    `json:"failures,omitempty"`
	SharedIDs  map[string][]string `json:"sharedIds,omitempty"`
}

// storeSummary puts the run bookkeeping into the debug report.
func (g *generator) storeSummary() {
	if g.env.Rpt == nil {
		return
	}

	s := runSummary{
		RunID:      g.env.RunID.String(),
		Found:      len(g.records),
		Written:    g.written(),
		Messages:   g.records,
		Services:   g.services,
		Duplicates: g.duplicates,
	}
	for _, f := range g.failures {
		s.Failures = append(s.Failures, failureSummary{Name: f.Name, File: f.File, Error: f.Err.Error()})
	}
	for _, id := range g.sharedIDs() {
		if s.SharedIDs == nil {
			s.SharedIDs = make(map[string][]string)
		}
		s.SharedIDs[id] = g.idNames[id]
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		g.log.Warn("Unable to serialize run summary for report", zap.Error(err))
		return
	}
	g.env.Rpt.StoreData("summary.json", data)
}
