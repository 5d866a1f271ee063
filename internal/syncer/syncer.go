// Package syncer reconciles generated model code with an output directory.
//
// A run writes one module per table, keeps the module declarations in the
// top-level mod.rs current and removes generated artifacts of tables that
// are no longer declared. Files without the generated signature are never
// overwritten or deleted.
package syncer

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mickamy/dieselgen/internal/config"
	"github.com/mickamy/dieselgen/internal/errs"
	"github.com/mickamy/dieselgen/internal/file"
	"github.com/mickamy/dieselgen/internal/gen"
	"github.com/mickamy/dieselgen/internal/naming"
	"github.com/mickamy/dieselgen/internal/schema"
)

const (
	modFile       = "mod.rs"
	generatedFile = "generated.rs"
	commonModule  = "common"
)

// Status is the outcome for one file of a run.
type Status int

const (
	Unchanged Status = iota
	Modified
	Deleted
)

func (s Status) String() string {
	switch s {
	case Modified:
		return "Modified"
	case Deleted:
		return "Deleted"
	default:
		return "Unchanged"
	}
}

// Change records what happened to a path.
type Change struct {
	Path   string
	Status Status
}

// Option configures Sync.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger file actions are reported to at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// GenerateFiles reads the schema at inputPath, generates Rust models for
// it and syncs them into outDir.
func GenerateFiles(inputPath, outDir string, cfg *config.GenerationConfig, opts ...Option) ([]Change, error) {
	src, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, errs.NewPathError("read", inputPath, err)
	}
	tables, err := schema.Parse(string(src), cfg, gen.Rust{})
	if err != nil {
		return nil, err
	}
	return Sync(tables, outDir, cfg, opts...)
}

// Sync writes the generated code of tables into outDir. Changes made before
// a failure are returned together with the error.
func Sync(tables []*schema.Table, outDir string, cfg *config.GenerationConfig, opts ...Option) ([]Change, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	r := &run{out: outDir, cfg: cfg, log: o.logger}
	err := r.sync(tables)
	return r.changes, err
}

type run struct {
	out     string
	cfg     *config.GenerationConfig
	log     *slog.Logger
	root    *file.File
	changes []Change

	// lower-cased module names produced by pass 1
	declared    map[string]string // module -> table
	dirModules  map[string]bool
	fileModules map[string]bool
}

func (r *run) sync(tables []*schema.Table) error {
	if err := ensureDir(r.out); err != nil {
		return err
	}
	root, err := file.Load(filepath.Join(r.out, modFile))
	if err != nil {
		return err
	}
	r.root = root
	r.declared = make(map[string]string, len(tables))
	r.dirModules = make(map[string]bool, len(tables))
	r.fileModules = make(map[string]bool)

	common := r.cfg.OnceCommonStructs || r.cfg.OnceConnectionType
	if common {
		if err := r.syncCommon(tables); err != nil {
			return err
		}
	}

	for _, t := range tables {
		if err := r.syncTable(t); err != nil {
			return err
		}
	}

	if err := r.removeOrphans(common); err != nil {
		return err
	}
	return r.save(r.root)
}

func (r *run) syncCommon(tables []*schema.Table) error {
	for _, t := range tables {
		if naming.ModuleName(t.Name) == commonModule {
			return errs.Otherf("table %q maps to the reserved module %q used for shared code", t.Name, commonModule)
		}
	}
	code, err := gen.Common(r.cfg)
	if err != nil {
		return err
	}
	f, err := file.Load(filepath.Join(r.out, commonModule+".rs"))
	if err != nil {
		return err
	}
	if err := f.EnsureSignature(); err != nil {
		return err
	}
	f.Replace(code)
	if err := r.save(f); err != nil {
		return err
	}
	r.root.EnsureDecl(file.DeclModule, commonModule)
	return nil
}

func (r *run) syncTable(t *schema.Table) error {
	opts := r.cfg.Table(t.Name)
	module := naming.ModuleName(t.Name)
	key := strings.ToLower(module)
	if other, ok := r.declared[key]; ok {
		return errs.Otherf("tables %q and %q both map to module %q", other, t.Name, module)
	}
	r.declared[key] = t.Name

	dir, path := r.out, filepath.Join(r.out, module+".rs")
	if !opts.SingleModelFile {
		dir = filepath.Join(r.out, module)
		path = filepath.Join(dir, generatedFile)
		if err := ensureDir(dir); err != nil {
			return err
		}
		r.dirModules[key] = true
	} else {
		r.fileModules[key] = true
	}

	f, err := file.Load(path)
	if err != nil {
		return err
	}
	if err := f.EnsureSignature(); err != nil {
		return err
	}
	f.Replace(t.GeneratedCode)
	if err := r.save(f); err != nil {
		return err
	}

	if !opts.SingleModelFile {
		mod, err := file.Load(filepath.Join(dir, modFile))
		if err != nil {
			return err
		}
		if c := mod.Contents(); strings.Contains(c, "\r\n") {
			mod.ReplaceSilent(strings.ReplaceAll(c, "\r\n", "\n"))
		}
		mod.EnsureDecl(file.DeclModule, "generated")
		mod.EnsureDecl(file.DeclUse, "generated::*")
		if err := r.save(mod); err != nil {
			return err
		}
	}

	r.root.EnsureDecl(file.DeclModule, module)
	return nil
}

// removeOrphans compares the generated artifacts on disk with the modules
// written by this run and deletes the ones no table produces anymore.
func (r *run) removeOrphans(common bool) error {
	entries, err := os.ReadDir(r.out)
	if err != nil {
		return errs.NewPathError("read dir", r.out, err)
	}
	for _, e := range entries {
		name := e.Name()
		key := strings.ToLower(name)
		switch {
		case e.IsDir():
			if r.dirModules[key] {
				continue
			}
			if err := r.removeModuleDir(name); err != nil {
				return err
			}
		case name == modFile || filepath.Ext(name) != ".rs":
		case name == commonModule+".rs":
			if common {
				continue
			}
			if err := r.removeGenerated(filepath.Join(r.out, name), commonModule); err != nil {
				return err
			}
		default:
			module := strings.TrimSuffix(name, ".rs")
			if r.fileModules[strings.ToLower(module)] {
				continue
			}
			if err := r.removeGenerated(filepath.Join(r.out, name), module); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *run) removeModuleDir(name string) error {
	dir := filepath.Join(r.out, name)
	f, err := file.Load(filepath.Join(dir, generatedFile))
	if err != nil {
		return err
	}
	if !isGenerated(f) {
		return nil
	}
	if err := r.delete(f); err != nil {
		return err
	}

	mod, err := file.Load(filepath.Join(dir, modFile))
	if err != nil {
		return err
	}
	mod.RemoveDecl(file.DeclModule, "generated")
	mod.RemoveDecl(file.DeclUse, "generated::*")
	switch {
	case strings.TrimSpace(mod.Contents()) == "" && mod.Exists():
		if err := r.delete(mod); err != nil {
			return err
		}
	case mod.Exists():
		if err := r.save(mod); err != nil {
			return err
		}
	}

	rest, err := os.ReadDir(dir)
	if err != nil {
		return errs.NewPathError("read dir", dir, err)
	}
	if len(rest) == 0 {
		if err := os.Remove(dir); err != nil {
			return errs.NewPathError("delete", dir, err)
		}
		r.record(Change{Path: dir, Status: Deleted})
	}

	r.dropDecl(name)
	return nil
}

// removeGenerated deletes a single-file module when it carries the signature.
func (r *run) removeGenerated(path, module string) error {
	f, err := file.Load(path)
	if err != nil {
		return err
	}
	if !isGenerated(f) {
		return nil
	}
	if err := r.delete(f); err != nil {
		return err
	}
	r.dropDecl(module)
	return nil
}

// dropDecl removes a module declaration unless a table of this run still
// uses the module in the other layout.
func (r *run) dropDecl(module string) {
	if _, ok := r.declared[strings.ToLower(module)]; ok {
		return
	}
	r.root.RemoveDecl(file.DeclModule, module)
}

func (r *run) save(f *file.File) error {
	c := Change{Path: f.Path(), Status: Unchanged}
	if f.Modified() || !f.Exists() {
		c.Status = Modified
	}
	if err := f.Write(); err != nil {
		return err
	}
	r.record(c)
	return nil
}

func (r *run) delete(f *file.File) error {
	path, err := f.Delete()
	if err != nil {
		return err
	}
	r.record(Change{Path: path, Status: Deleted})
	return nil
}

func (r *run) record(c Change) {
	r.log.Debug("sync file", "path", c.Path, "status", c.Status.String())
	r.changes = append(r.changes, c)
}

// isGenerated reports whether f is a non-empty file written by dieselgen.
func isGenerated(f *file.File) bool {
	return f.Contents() != "" && f.HasSignature()
}

func ensureDir(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(path, 0o755); err != nil {
			return errs.NewPathError("mkdir", path, err)
		}
		return nil
	case err != nil:
		return errs.NewPathError("stat", path, err)
	case !info.IsDir():
		return errs.NewPathError("mkdir", path, errs.ErrNotADirectory)
	}
	return nil
}
