package report

import (
	"fmt"
	"path"
	"time"

	"github.com/valyala/fasttemplate"

	"github.com/devicelab-dev/droid-harness/pkg/config"
	"github.com/devicelab-dev/droid-harness/pkg/logger"
	"github.com/devicelab-dev/droid-harness/pkg/perf"
)

// DateLayout is the {date} tag format.
const DateLayout = "2006-01-02"

// Tags fills report name templates.
type Tags struct {
	Date  time.Time
	RunID string
	Suite string
}

// RenderName expands {date}, {run} and {suite} in tmpl.
// Unknown tags are left as written.
func RenderName(tmpl string, tags Tags) (string, error) {
	t, err := fasttemplate.NewTemplate(tmpl, "{", "}")
	if err != nil {
		return "", fmt.Errorf("parse name template %q: %w", tmpl, err)
	}
	return t.ExecuteStringStd(map[string]interface{}{
		"date":  tags.Date.Format(DateLayout),
		"run":   tags.RunID,
		"suite": tags.Suite,
	}), nil
}

// Writer persists reports into the configured reports directory.
type Writer struct {
	store *FileStore
	out   config.Output
	suite string
	log   *logger.Logger
}

// NewWriter creates a Writer storing files under out.Dir.
func NewWriter(out config.Output, suite string, log *logger.Logger) *Writer {
	if log == nil {
		log = logger.Nop()
	}
	return &Writer{
		store: NewFileStore(out.Dir),
		out:   out,
		suite: suite,
		log:   log,
	}
}

// Store returns the underlying artifact store (shared with the device
// layer for screenshots).
func (w *Writer) Store() *FileStore {
	return w.store
}

// WriteReport writes r and returns the store-relative path.
func (w *Writer) WriteReport(r *Report) (string, error) {
	return w.write(w.out.ReportName, Tags{Date: r.Timestamp, RunID: r.RunID, Suite: w.suite}, r)
}

// WritePerformance writes a performance report under the performance
// report name template.
func (w *Writer) WritePerformance(r perf.FileReport) (string, error) {
	return w.write(w.out.PerfReportName, Tags{Date: r.Timestamp, RunID: r.RunID, Suite: w.suite}, r)
}

func (w *Writer) write(tmpl string, tags Tags, v interface{}) (string, error) {
	name, err := RenderName(tmpl, tags)
	if err != nil {
		return "", err
	}
	rel := path.Join(w.out.ReportsDir, name)
	if err := w.store.WriteJSON(rel, v); err != nil {
		w.log.Error("Failed to write report", logger.Fields{"path": rel, "error": err.Error()})
		return "", err
	}
	w.log.Info("Report saved", logger.Fields{"path": rel})
	return rel, nil
}
