package job

import (
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/texsync/internal/compiler"
	"git.home.luguber.info/inful/texsync/internal/errors"
	"git.home.luguber.info/inful/texsync/internal/history"
	"git.home.luguber.info/inful/texsync/internal/notion"
	"git.home.luguber.info/inful/texsync/internal/workspace"
)

const validDoc = "---\n\nclient: ACME\n\ntitre: Report\n\nphase_id: P1\n\nphase_nom: Draft\n\n---\n\n# Body\n\nSome text."

func docWith(client, titre string) string {
	return fmt.Sprintf("---\n\nclient: %s\n\ntitre: %s\n\nphase_id: P1\n\nphase_nom: Draft\n\n---\n\nBody", client, titre)
}

type fakeFetcher struct {
	refs []DocumentRef
	err  error
}

func (f fakeFetcher) Fetch(context.Context) ([]DocumentRef, error) {
	return f.refs, f.err
}

// fakeExporter serves markdown per page. Pages listed in images also get an
// image-1.png asset with the given content.
type fakeExporter struct {
	docs   map[string]string
	images map[string]string
}

func (e fakeExporter) Export(_ context.Context, pageID, dir string) (*notion.Export, error) {
	md, ok := e.docs[pageID]
	if !ok {
		return nil, errors.NetworkError("page not found").Build()
	}
	exp := &notion.Export{PageID: pageID, Markdown: md}
	if data, ok := e.images[pageID]; ok {
		if err := os.WriteFile(filepath.Join(dir, "image-1.png"), []byte(data), 0o600); err != nil {
			return nil, err
		}
		exp.Markdown += "\n\n![](image-1.png)\n"
		exp.Assets = []string{"image-1.png"}
	}
	return exp, nil
}

type reportCall struct {
	pageID  string
	blockID string
	success bool
	message string
}

type recordingReporter struct {
	mu     sync.Mutex
	calls  []reportCall
	failOn string
}

func (r *recordingReporter) Report(_ context.Context, pageID, blockID string, success bool, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, reportCall{pageID, blockID, success, message})
	if pageID == r.failOn {
		return errors.ReportError("Error while updating Notion page.").Build()
	}
	return nil
}

// toolchain fakes pandoc and xelatex. Documents listed in failFirstPass make
// the first xelatex pass exit non-zero.
type toolchain struct {
	mu            sync.Mutex
	calls         int
	failFirstPass map[string]bool
}

func (tc *toolchain) Run(_ context.Context, cmd compiler.Command) (*compiler.Result, error) {
	tc.mu.Lock()
	tc.calls++
	tc.mu.Unlock()

	target := cmd.Args[len(cmd.Args)-1]
	base := strings.TrimSuffix(target, filepath.Ext(target))
	switch cmd.Name {
	case "pandoc":
		return &compiler.Result{}, os.WriteFile(filepath.Join(cmd.Dir, target), []byte("tex"), 0o600)
	case "xelatex":
		pdf := filepath.Join(cmd.Dir, base+".pdf")
		if tc.failFirstPass[base] {
			if _, err := os.Stat(pdf); err != nil {
				return &compiler.Result{ExitCode: 1, Stdout: []byte("! LaTeX Error")}, nil
			}
		}
		return &compiler.Result{}, os.WriteFile(pdf, []byte("%PDF"), 0o600)
	}
	return nil, fmt.Errorf("unexpected command %s", cmd.Name)
}

type harness struct {
	runner   *Runner
	exporter fakeExporter
	reporter *recordingReporter
	tools    *toolchain
	outDir   string
	wsDir    string
}

func newHarness(t *testing.T, refs []DocumentRef, docs map[string]string, opts Options, store history.Store) *harness {
	t.Helper()
	root := t.TempDir()
	tmpl := filepath.Join(root, "template")
	require.NoError(t, os.MkdirAll(tmpl, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(tmpl, "template.tex"), []byte("$body$"), 0o600))

	h := &harness{
		exporter: fakeExporter{docs: docs, images: map[string]string{}},
		reporter: &recordingReporter{},
		tools:    &toolchain{failFirstPass: map[string]bool{}},
		outDir:   filepath.Join(root, "out"),
		wsDir:    filepath.Join(root, "ws"),
	}
	comp := compiler.New(compiler.Options{
		TemplateSourceDir: tmpl,
		TemplateFile:      "template.tex",
		OutputDir:         h.outDir,
	}, h.tools)

	h.runner = NewRunner(Dependencies{
		Fetcher:   fakeFetcher{refs: refs},
		Exporter:  h.exporter,
		Compiler:  comp,
		Reporter:  h.reporter,
		Workspace: workspace.NewManager(h.wsDir),
		History:   store,
	}, opts)
	return h
}

func ref(pageID string) DocumentRef {
	return DocumentRef{PageID: pageID, Block: paragraph("block-"+pageID)}
}

func paragraph(id string, runs ...notionapi.RichText) notionapi.Block {
	return &notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{ID: notionapi.BlockID(id), Type: notionapi.BlockTypeParagraph},
		Paragraph:  notionapi.Paragraph{RichText: runs},
	}
}

func TestFinalStatus(t *testing.T) {
	cases := []struct {
		total, failures int
		aborted         bool
		want            Status
	}{
		{0, 0, false, StatusSuccess},
		{1, 0, false, StatusSuccess},
		{1, 1, false, StatusError},
		{3, 2, false, StatusSuccess},
		{3, 3, false, StatusError},
		{0, 0, true, StatusError},
		{3, 0, true, StatusError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FinalStatus(tc.total, tc.failures, tc.aborted),
			"total=%d failures=%d aborted=%v", tc.total, tc.failures, tc.aborted)
	}
}

func TestRun_WellFormedDocumentCompiles(t *testing.T) {
	h := newHarness(t, []DocumentRef{ref("doc1")}, map[string]string{"doc1": validDoc}, Options{}, nil)

	report, err := h.runner.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, report.FinalStatus)
	assert.Equal(t, 1, report.TotalDocuments)
	assert.Equal(t, 0, report.FailureCount)
	assert.NotEmpty(t, report.JobID)
	assert.FileExists(t, filepath.Join(h.outDir, "acme_report_p1_draft.pdf"))
	assert.FileExists(t, filepath.Join(h.outDir, "acme_report_p1_draft.tex"))

	require.Len(t, h.reporter.calls, 1)
	assert.Equal(t, reportCall{"doc1", "block-doc1", true, ""}, h.reporter.calls[0])

	require.Len(t, report.Documents, 1)
	assert.Equal(t, "acme_report_p1_draft", report.Documents[0].Title)
	assert.NotEmpty(t, report.Documents[0].Fingerprint)
}

func TestRun_MissingRequiredFieldIsReported(t *testing.T) {
	missing := "---\n\nclient: ACME\n\ntitre: Report\n\nphase_id: P1\n\n---\n\nBody"
	h := newHarness(t, []DocumentRef{ref("bad"), ref("good")},
		map[string]string{"bad": missing, "good": validDoc}, Options{}, nil)

	report, err := h.runner.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 1, report.FailureCount)
	assert.Equal(t, StatusSuccess, report.FinalStatus)

	require.Len(t, h.reporter.calls, 2)
	bad := h.reporter.calls[0]
	assert.Equal(t, "bad", bad.pageID)
	assert.False(t, bad.success)
	assert.Contains(t, bad.message, "phase_nom")

	assert.Equal(t, StageValidate, report.Documents[0].Stage)
	assert.True(t, errors.HasCategory(report.Documents[0].Err, errors.CategoryValidation))
}

func TestRun_AllDocumentsFailing(t *testing.T) {
	h := newHarness(t, []DocumentRef{ref("a")}, map[string]string{"a": "no header here"}, Options{}, nil)

	report, err := h.runner.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, StatusError, report.FinalStatus)
	assert.Equal(t, 1, report.FailureCount)
	require.Len(t, h.reporter.calls, 1)
	assert.Equal(t, MessageBadHeader, h.reporter.calls[0].message)
	assert.Equal(t, StageExtract, report.Documents[0].Stage)
}

func TestRun_FirstPassFailure(t *testing.T) {
	h := newHarness(t, []DocumentRef{ref("doc1")}, map[string]string{"doc1": validDoc}, Options{}, nil)
	h.tools.failFirstPass["doc1"] = true

	report, err := h.runner.Run(t.Context())
	require.NoError(t, err)

	assert.Equal(t, 1, report.FailureCount)
	require.Len(t, h.reporter.calls, 1)
	assert.False(t, h.reporter.calls[0].success)
	assert.Equal(t, MessageCompileFailed, h.reporter.calls[0].message)
	assert.Equal(t, string(compiler.StageXelatexFirst), report.Documents[0].Stage)
	assert.NoFileExists(t, filepath.Join(h.outDir, "acme_report_p1_draft.pdf"))
}

func TestRun_ExportFailureCounts(t *testing.T) {
	h := newHarness(t, []DocumentRef{ref("missing"), ref("doc1")}, map[string]string{"doc1": validDoc}, Options{}, nil)

	report, err := h.runner.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report.FailureCount)
	assert.Equal(t, MessageExportFailed, h.reporter.calls[0].message)
}

func TestRun_FetchFailureAborts(t *testing.T) {
	h := newHarness(t, nil, nil, Options{}, nil)
	h.runner.deps.Fetcher = fakeFetcher{err: errors.FetchError("Failed to get files from Notion.").Build()}

	report, err := h.runner.Run(t.Context())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFetch))
	assert.Equal(t, StatusError, report.FinalStatus)
	assert.Zero(t, report.TotalDocuments)
	assert.Empty(t, h.reporter.calls)
}

func TestRun_EmptyBatchSucceeds(t *testing.T) {
	h := newHarness(t, nil, nil, Options{}, nil)

	report, err := h.runner.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, report.FinalStatus)
	assert.Zero(t, report.Compiled())
}

func TestRun_ReportFailureAbortsJob(t *testing.T) {
	h := newHarness(t, []DocumentRef{ref("doc1"), ref("doc2")},
		map[string]string{"doc1": validDoc, "doc2": docWith("Other", "Report")}, Options{}, nil)
	h.reporter.failOn = "doc1"

	report, err := h.runner.Run(t.Context())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryReport))
	assert.Equal(t, StatusError, report.FinalStatus)
	assert.Len(t, h.reporter.calls, 1, "processing stops after a failed status write")
	assert.Len(t, report.Documents, 1)
}

func TestRun_TemplateFailureAborts(t *testing.T) {
	h := newHarness(t, []DocumentRef{ref("doc1")}, map[string]string{"doc1": validDoc}, Options{}, nil)
	h.runner.deps.Template = templateFunc(func(context.Context) error {
		return errors.TemplateError("clone failed").Build()
	})

	report, err := h.runner.Run(t.Context())
	require.Error(t, err)
	assert.Equal(t, StatusError, report.FinalStatus)
	assert.Empty(t, h.reporter.calls)
}

func TestRun_ParallelWorkers(t *testing.T) {
	var refs []DocumentRef
	docs := map[string]string{}
	for i := range 6 {
		id := fmt.Sprintf("doc%d", i)
		refs = append(refs, ref(id))
		docs[id] = docWith(fmt.Sprintf("Client%d", i), "Report")
	}
	h := newHarness(t, refs, docs, Options{Workers: 3}, nil)

	report, err := h.runner.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, report.FailureCount)
	assert.Len(t, h.reporter.calls, 6)
	for i := range 6 {
		assert.FileExists(t, filepath.Join(h.outDir, fmt.Sprintf("client%d_report_p1_draft.pdf", i)))
	}
	// Results keep fetch order regardless of completion order.
	for i, d := range report.Documents {
		assert.Equal(t, refs[i].PageID, d.Ref.PageID)
	}
}

func TestRun_SkipsUnchangedDocuments(t *testing.T) {
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	h := newHarness(t, []DocumentRef{ref("doc1")}, map[string]string{"doc1": validDoc}, Options{SkipUnchanged: true}, store)

	_, err = h.runner.Run(t.Context())
	require.NoError(t, err)
	callsAfterFirst := h.tools.calls
	require.Equal(t, 3, callsAfterFirst)

	report, err := h.runner.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, h.tools.calls, "unchanged document must not be recompiled")
	require.Len(t, report.Documents, 1)
	assert.True(t, report.Documents[0].Skipped)
	assert.Equal(t, "acme_report_p1_draft", report.Documents[0].Title)
	assert.Len(t, h.reporter.calls, 1)

	jobs, err := store.RecentJobs(t.Context(), 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestRun_RecompilesWhenOnlyAnImageChanges(t *testing.T) {
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	h := newHarness(t, []DocumentRef{ref("doc1")}, map[string]string{"doc1": validDoc}, Options{SkipUnchanged: true}, store)
	h.exporter.images["doc1"] = "diagram v1"

	_, err = h.runner.Run(t.Context())
	require.NoError(t, err)
	require.Equal(t, 3, h.tools.calls)

	report, err := h.runner.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, report.Documents, 1)
	assert.True(t, report.Documents[0].Skipped)
	assert.Equal(t, 3, h.tools.calls)

	h.exporter.images["doc1"] = "diagram v2"
	report, err = h.runner.Run(t.Context())
	require.NoError(t, err)
	require.Len(t, report.Documents, 1)
	assert.False(t, report.Documents[0].Skipped)
	assert.True(t, report.Documents[0].Success)
	assert.Equal(t, 6, h.tools.calls)
}

func TestRun_ReleasesWorkingDirectories(t *testing.T) {
	h := newHarness(t, []DocumentRef{ref("doc1"), ref("bad")},
		map[string]string{"doc1": validDoc, "bad": "nothing"}, Options{}, nil)

	_, err := h.runner.Run(t.Context())
	require.NoError(t, err)

	entries, err := os.ReadDir(h.wsDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRun_CancelledContext(t *testing.T) {
	h := newHarness(t, []DocumentRef{ref("doc1")}, map[string]string{"doc1": validDoc}, Options{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.runner.Run(ctx)
	require.Error(t, err)
	assert.True(t, stdErrors.Is(err, context.Canceled))
	assert.Equal(t, StatusError, report.FinalStatus)
}

type templateFunc func(context.Context) error

func (f templateFunc) Sync(ctx context.Context) error {
	return f(ctx)
}

func TestNotionFetcher(t *testing.T) {
	mention := func(id string) notionapi.RichText {
		return notionapi.RichText{
			Type:    notion.RichTextMention,
			Mention: &notionapi.Mention{Type: notionapi.MentionTypePage, Page: &notionapi.PageMention{ID: notionapi.ObjectID(id)}},
		}
	}
	blocks := []notionapi.Block{
		paragraph("b1", mention("p1")),
		&notionapi.Heading1Block{
			BasicBlock: notionapi.BasicBlock{ID: "b2", Type: notionapi.BlockTypeHeading1},
			Heading1:   notionapi.Heading{RichText: []notionapi.RichText{mention("ignored")}},
		},
		paragraph("b3", notionapi.RichText{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: "see "}}, mention("p2")),
	}

	refs, err := NewNotionFetcher(staticLister{blocks: blocks}, "root").Fetch(t.Context())
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "p1", refs[0].PageID)
	assert.Equal(t, "b1", refs[0].BlockID())
	assert.Equal(t, "p2", refs[1].PageID)
	assert.Equal(t, "b3", refs[1].BlockID())

	_, err = NewNotionFetcher(staticLister{err: stdErrors.New("boom")}, "root").Fetch(t.Context())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFetch))
}

type staticLister struct {
	blocks []notionapi.Block
	err    error
}

func (l staticLister) ListChildren(context.Context, string) ([]notionapi.Block, error) {
	return l.blocks, l.err
}
