package compiler

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/frontmatter"
	"git.home.luguber.info/inful/texsync/internal/logfields"
	"git.home.luguber.info/inful/texsync/internal/metadata"
	"git.home.luguber.info/inful/texsync/internal/metrics"
	"git.home.luguber.info/inful/texsync/internal/workspace"
)

// maxTailLines bounds the process output kept in an error detail.
const maxTailLines = 12

// Options configure the toolchain and the locations it works with.
type Options struct {
	Pandoc            string
	Xelatex           string
	TemplateSourceDir string // directory copied into every slot
	TemplateFile      string // file name relative to TemplateSourceDir
	OutputDir         string
	Timeout           time.Duration
}

// Input is one validated document ready for compilation.
type Input struct {
	DocumentID string
	Content    string // reconstructed markdown (header + body)
	Metadata   metadata.Metadata
}

// Outcome is the immutable result of one compilation.
type Outcome struct {
	Success       bool
	ArtifactTitle string
	ErrorDetail   string
	FailedStage   StageName
	Artifacts     []string
	Pages         int
	Err           error
}

// Compiler drives pandoc and xelatex for one document at a time per slot.
// A Compiler is safe for concurrent use with distinct slots.
type Compiler struct {
	opts      Options
	runner    ToolRunner
	verifier  Verifier
	publisher Publisher
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// New creates a Compiler. A nil runner selects ExecRunner.
func New(opts Options, runner ToolRunner) *Compiler {
	if runner == nil {
		runner = ExecRunner{}
	}
	if opts.Pandoc == "" {
		opts.Pandoc = "pandoc"
	}
	if opts.Xelatex == "" {
		opts.Xelatex = "xelatex"
	}
	return &Compiler{
		opts:     opts,
		runner:   runner,
		verifier: existsVerifier{},
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
}

// WithVerifier replaces the artifact verifier.
func (c *Compiler) WithVerifier(v Verifier) *Compiler {
	if v != nil {
		c.verifier = v
	}
	return c
}

// WithPublisher enables the publish stage.
func (c *Compiler) WithPublisher(p Publisher) *Compiler {
	c.publisher = p
	return c
}

// WithRecorder sets the metrics recorder.
func (c *Compiler) WithRecorder(r metrics.Recorder) *Compiler {
	c.recorder = metrics.OrNoop(r)
	return c
}

// WithLogger sets the logger.
func (c *Compiler) WithLogger(l *slog.Logger) *Compiler {
	if l != nil {
		c.logger = l
	}
	return c
}

// Compile runs every stage in order and stops at the first failure. Artifacts
// stay in the output directory only when every stage, publish included, succeeds.
func (c *Compiler) Compile(ctx context.Context, in Input, slot *workspace.Slot) Outcome {
	log := c.logger.With(logfields.DocumentID(in.DocumentID))
	base := fileBase(in.DocumentID)
	mdName := base + ".md"
	texName := base + ".tex"
	pdfName := base + ".pdf"

	var out Outcome

	fail := func(stage StageName, err error) Outcome {
		out.Success = false
		out.FailedStage = stage
		out.ErrorDetail = fmt.Sprintf("%s: %v", stage, err)
		out.Err = errors.CompileError(stage.String(), "The compilation failed.").
			WithCause(err).
			WithContext("document_id", in.DocumentID).
			Build()
		log.Warn("Compilation stage failed", logfields.Stage(stage.String()), logfields.Error(err))
		return out
	}

	if err := c.stage(ctx, StageTitle, func() error {
		title, err := DeriveTitle(in.Metadata)
		out.ArtifactTitle = title
		return err
	}); err != nil {
		return fail(StageTitle, err)
	}
	log = log.With(logfields.Title(out.ArtifactTitle))

	if err := c.stage(ctx, StageStage, func() error {
		if c.opts.TemplateSourceDir != "" {
			if err := slot.Stage(c.opts.TemplateSourceDir); err != nil {
				return fmt.Errorf("stage template: %w", err)
			}
		}
		if _, err := os.Stat(slot.File(c.opts.TemplateFile)); err != nil {
			return fmt.Errorf("%w: %s", ErrTemplateMissing, c.opts.TemplateFile)
		}
		return slot.WriteFile(mdName, []byte(in.Content))
	}); err != nil {
		return fail(StageStage, err)
	}

	if err := c.stage(ctx, StageAssetCheck, func() error {
		body := in.Content
		if _, b, had, _, err := frontmatter.Split(in.Content); err == nil && had {
			body = b
		}
		return CheckAssets(body, slot.Path())
	}); err != nil {
		return fail(StageAssetCheck, err)
	}

	pandocArgs := []string{mdName, "--template=" + c.opts.TemplateFile, "-o", texName}
	if err := c.stage(ctx, StagePandoc, func() error {
		return c.tool(ctx, slot, c.opts.Pandoc, pandocArgs...)
	}); err != nil {
		return fail(StagePandoc, err)
	}

	// Two passes: the first resolves references, the second lays them out.
	for _, pass := range []StageName{StageXelatexFirst, StageXelatexSecond} {
		if err := c.stage(ctx, pass, func() error {
			return c.tool(ctx, slot, c.opts.Xelatex, "-interaction=nonstopmode", texName)
		}); err != nil {
			return fail(pass, err)
		}
	}

	if err := c.stage(ctx, StageVerify, func() error {
		pages, err := c.verifier.Verify(slot.File(pdfName))
		out.Pages = pages
		return err
	}); err != nil {
		return fail(StageVerify, err)
	}

	if err := c.stage(ctx, StageMove, func() error {
		if err := os.MkdirAll(c.opts.OutputDir, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		for _, name := range []string{pdfName, texName} {
			dst := filepath.Join(c.opts.OutputDir, out.ArtifactTitle+filepath.Ext(name))
			if err := workspace.MoveFile(slot.File(name), dst); err != nil {
				c.discard(log, out.Artifacts)
				out.Artifacts = nil
				return err
			}
			out.Artifacts = append(out.Artifacts, dst)
		}
		return nil
	}); err != nil {
		return fail(StageMove, err)
	}

	if c.publisher != nil {
		if err := c.stage(ctx, StagePublish, func() error {
			return c.publisher.Publish(ctx, out.Artifacts)
		}); err != nil {
			c.discard(log, out.Artifacts)
			out.Artifacts = nil
			return fail(StagePublish, err)
		}
	}

	out.Success = true
	log.Info("Compiled document", logfields.Path(out.Artifacts[0]))
	return out
}

// discard removes artifacts already moved to the output directory.
func (c *Compiler) discard(log *slog.Logger, paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warn("Failed to remove partial artifact", logfields.Path(p), logfields.Error(err))
		}
	}
}

func (c *Compiler) stage(ctx context.Context, name StageName, fn func() error) error {
	if err := ctx.Err(); err != nil {
		c.recorder.IncStageResult(name.String(), metrics.ResultCanceled)
		return err
	}
	start := time.Now()
	err := fn()
	c.recorder.ObserveStageDuration(name.String(), time.Since(start))
	switch {
	case err == nil:
		c.recorder.IncStageResult(name.String(), metrics.ResultSuccess)
	case stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, context.DeadlineExceeded):
		c.recorder.IncStageResult(name.String(), metrics.ResultCanceled)
	default:
		c.recorder.IncStageResult(name.String(), metrics.ResultFailed)
	}
	return err
}

func (c *Compiler) tool(ctx context.Context, slot *workspace.Slot, name string, args ...string) error {
	res, err := c.runner.Run(ctx, Command{
		Name:    name,
		Args:    args,
		Dir:     slot.Path(),
		Timeout: c.opts.Timeout,
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: %s exited with code %d%s", ErrToolFailed, name, res.ExitCode, outputTail(res))
	}
	return nil
}

// outputTail returns the last lines of stderr, or of stdout when stderr is
// empty (xelatex reports errors on stdout).
func outputTail(res *Result) string {
	text := strings.TrimSpace(string(res.Stderr))
	if text == "" {
		text = strings.TrimSpace(string(res.Stdout))
	}
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > maxTailLines {
		lines = lines[len(lines)-maxTailLines:]
	}
	return "\n" + strings.Join(lines, "\n")
}

// fileBase maps a document id to a name safe for the toolchain.
func fileBase(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}
