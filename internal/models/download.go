// Package models fetches whisper.cpp ggml model files.
package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/schollz/progressbar/v3"
)

// DefaultBaseURL hosts the ggml conversions of the whisper models.
const DefaultBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

var (
	// ErrUnknownModel is returned for model names not in Known.
	ErrUnknownModel = errors.New("unknown model")
	// ErrDownloadInProgress is returned when another process holds the
	// download lock for the same model.
	ErrDownloadInProgress = errors.New("model download already in progress")
)

// Model describes a downloadable ggml model.
type Model struct {
	Name         string
	Size         uint64 // approximate, bytes
	Multilingual bool
}

// FileName returns the ggml file name of the model.
func (m Model) FileName() string {
	return "ggml-" + m.Name + ".bin"
}

// Known lists the models phrasedeck can download.
var Known = map[string]Model{
	"tiny":           {Name: "tiny", Size: 78 << 20, Multilingual: true},
	"tiny.en":        {Name: "tiny.en", Size: 78 << 20},
	"base":           {Name: "base", Size: 148 << 20, Multilingual: true},
	"base.en":        {Name: "base.en", Size: 148 << 20},
	"small":          {Name: "small", Size: 488 << 20, Multilingual: true},
	"small.en":       {Name: "small.en", Size: 488 << 20},
	"medium":         {Name: "medium", Size: 1533 << 20, Multilingual: true},
	"medium.en":      {Name: "medium.en", Size: 1533 << 20},
	"large-v3":       {Name: "large-v3", Size: 3095 << 20, Multilingual: true},
	"large-v3-turbo": {Name: "large-v3-turbo", Size: 1624 << 20, Multilingual: true},
}

// Lookup returns the known model called name.
func Lookup(name string) (Model, error) {
	m, ok := Known[name]
	if !ok {
		return Model{}, fmt.Errorf("%w: %q (run 'phrasedeck model list')", ErrUnknownModel, name)
	}
	return m, nil
}

// Sorted returns Known ordered by size, then name.
func Sorted() []Model {
	out := make([]Model, 0, len(Known))
	for _, m := range Known {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size < out[j].Size
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// HumanSize formats the approximate model size.
func (m Model) HumanSize() string {
	return humanize.IBytes(m.Size)
}

// Downloader fetches models into Dir.
type Downloader struct {
	BaseURL string
	Dir     string
	Client  *http.Client
	// Progress receives download progress; nil disables it.
	Progress io.Writer
	// ProgressBar draws an interactive bar on Progress. Otherwise a plain
	// byte count line is written every reportEvery bytes.
	ProgressBar bool

	reportEvery int64
	// afterCheck runs between the unlocked existence check and locking.
	afterCheck func()
}

// defaultReportEvery is the byte interval of plain progress lines.
const defaultReportEvery = 64 << 20

// NewDownloader creates a Downloader targeting dir.
func NewDownloader(dir string) *Downloader {
	return &Downloader{BaseURL: DefaultBaseURL, Dir: dir, Client: http.DefaultClient}
}

// existing reports a non-empty model file at path.
func existing(path string) (Result, bool) {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return Result{}, false
	}
	return Result{Path: path, Bytes: info.Size(), Skipped: true}, true
}

// Result reports what Download did.
type Result struct {
	Path    string
	Bytes   int64
	Skipped bool // the model was already present
}

// Download fetches the named model unless a non-empty copy already exists.
// The file is written to a temp path first and renamed into place.
func (d *Downloader) Download(ctx context.Context, name string) (Result, error) {
	m, err := Lookup(name)
	if err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return Result{}, fmt.Errorf("creating models dir: %w", err)
	}

	destPath := filepath.Join(d.Dir, m.FileName())
	if res, ok := existing(destPath); ok {
		return res, nil
	}
	if d.afterCheck != nil {
		d.afterCheck()
	}

	// The lock file is never removed: unlinking it would let a second
	// process lock a fresh inode while the first still holds the old one.
	lock := flock.New(destPath + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return Result{}, fmt.Errorf("acquire download lock: %w", err)
	}
	if !ok {
		return Result{}, fmt.Errorf("%s: %w", m.FileName(), ErrDownloadInProgress)
	}
	defer lock.Unlock()

	// Another process may have finished the download before we got the lock.
	if res, ok := existing(destPath); ok {
		return res, nil
	}

	url := d.BaseURL + "/" + m.FileName()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("building request: %w", err)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("downloading %s: %w", m.FileName(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("download %s failed: HTTP %d", m.FileName(), resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return Result{}, fmt.Errorf("creating temp file: %w", err)
	}

	var dst io.Writer = f
	var counter *byteCounter
	switch {
	case d.Progress == nil:
	case d.ProgressBar:
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(d.Progress),
			progressbar.OptionSetDescription(m.FileName()),
			progressbar.OptionShowBytes(true),
			progressbar.OptionClearOnFinish(),
		)
		dst = io.MultiWriter(f, bar)
	default:
		every := d.reportEvery
		if every <= 0 {
			every = defaultReportEvery
		}
		counter = &byteCounter{w: d.Progress, name: m.FileName(), total: resp.ContentLength, every: every}
		dst = io.MultiWriter(f, counter)
	}

	written, err := io.Copy(dst, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return Result{}, fmt.Errorf("writing model file: %w", err)
	}
	if written == 0 {
		os.Remove(tmpPath)
		return Result{}, fmt.Errorf("download %s returned an empty body", m.FileName())
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return Result{}, fmt.Errorf("moving model file: %w", err)
	}
	if counter != nil {
		counter.done()
	}

	return Result{Path: destPath, Bytes: written}, nil
}

// byteCounter writes a plain progress line each time another `every` bytes
// have passed through it. It is used when the output is not a terminal.
type byteCounter struct {
	w     io.Writer
	name  string
	total int64 // -1 when unknown
	every int64

	n        int64
	reported int64
}

func (c *byteCounter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	if c.n-c.reported >= c.every {
		c.reported = c.n - c.n%c.every
		c.line("")
	}
	return len(p), nil
}

func (c *byteCounter) done() {
	c.line(" done")
}

func (c *byteCounter) line(suffix string) {
	if c.total > 0 {
		fmt.Fprintf(c.w, "%s: %s / %s%s\n", c.name, humanize.IBytes(uint64(c.n)), humanize.IBytes(uint64(c.total)), suffix)
		return
	}
	fmt.Fprintf(c.w, "%s: %s%s\n", c.name, humanize.IBytes(uint64(c.n)), suffix)
}
