package output

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/sigrename/pkg/models"
)

const progressTemplate = `{{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{etime . }} {{string . "file"}}`

// getUpdateInterval returns the bar refresh interval based on OS
// Windows terminals have higher latency with ANSI sequences
func getUpdateInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// ProgressFormatter draws a single progress bar over the batch and
// prints the summary once it completes
type ProgressFormatter struct {
	mu        sync.Mutex
	writer    io.Writer
	bar       *pb.ProgressBar
	termWidth int
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{}
}

// Start initializes the bar
func (f *ProgressFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer

	// Default to 120 columns when not attached to a terminal
	f.termWidth = 120
	if file, ok := writer.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			f.termWidth = width
		}
	}

	f.bar = pb.ProgressBarTemplate(progressTemplate).New(totalFiles)
	f.bar.SetWriter(writer)
	f.bar.SetMaxWidth(f.termWidth)
	f.bar.SetRefreshRate(getUpdateInterval())
	f.bar.Set("file", "")
	f.bar.Start()

	return nil
}

// Progress advances the bar once per finished file
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil {
		return nil
	}

	switch update.Type {
	case "file_start":
		f.bar.Set("file", f.truncate(update.FilePath))
	case "file_complete", "file_error":
		f.bar.Increment()
	}
	return nil
}

// truncate keeps the file label short enough for the bar to fit on one line
func (f *ProgressFormatter) truncate(name string) string {
	limit := f.termWidth / 3
	if limit < 10 {
		limit = 10
	}
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	base := []rune(path.Base(name))
	if len(base) <= limit {
		return "…/" + string(base)
	}
	return "…" + string(base[len(base)-limit+1:])
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(rep *models.BatchReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishBar()
	if f.writer == nil {
		f.writer = os.Stdout
	}
	writeSummary(f.writer, rep)
	return nil
}

// Error stops the bar and reports the error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishBar()
	w := f.writer
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "%s %v\n", errorMark("Error:"), err)
	return nil
}

func (f *ProgressFormatter) finishBar() {
	if f.bar == nil {
		return
	}
	f.bar.Set("file", "")
	f.bar.Finish()
	f.bar = nil
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
