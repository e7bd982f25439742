// Package page renders the study page: markup, stylesheet, script and a
// JSON manifest of the phrases.
package page

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	"path/filepath"
	texttemplate "text/template"
	"time"
)

//go:embed templates
var templateFS embed.FS

const (
	StylesFile   = "styles.css"
	ScriptFile   = "scripts.js"
	ManifestFile = "phrases.json"
)

var (
	htmlTmpl = htmltemplate.Must(htmltemplate.New("page.html.tmpl").Funcs(htmltemplate.FuncMap{
		"millis": millis,
		"clock":  clock,
	}).ParseFS(templateFS, "templates/page.html.tmpl"))

	scriptTmpl = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/scripts.js.tmpl"))
)

// Phrase is one clip as shown on the page. File is relative to the page.
type Phrase struct {
	Index int
	File  string
	Text  string
	Start time.Duration
	End   time.Duration
}

// Document is everything the page shows.
type Document struct {
	Title     string
	Lang      string
	Reference string
	Source    string
	BuildID   string
	Phrases   []Phrase
}

// RenderStyles writes the stylesheet.
func RenderStyles(w io.Writer) error {
	data, err := templateFS.ReadFile("templates/" + StylesFile)
	if err != nil {
		return fmt.Errorf("page: read stylesheet: %w", err)
	}
	_, err = w.Write(data)
	return err
}

type track struct {
	Src   string `json:"src"`
	Title string `json:"title"`
}

// RenderScript writes scripts.js with the phrase files embedded as a JSON
// track list.
func RenderScript(w io.Writer, phrases []Phrase) error {
	tracks := make([]track, len(phrases))
	for i, p := range phrases {
		tracks[i] = track{Src: p.File, Title: fmt.Sprintf("Track %d", i+1)}
	}
	encoded, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("page: encode tracks: %w", err)
	}

	if err := scriptTmpl.Execute(w, struct{ Tracks string }{string(encoded)}); err != nil {
		return fmt.Errorf("page: render script: %w", err)
	}
	return nil
}

// RenderHTML writes the page markup. All interpolated values are escaped.
func RenderHTML(w io.Writer, doc Document) error {
	if doc.Title == "" {
		doc.Title = "Audio Player"
	}
	if doc.Lang == "" || doc.Lang == "auto" {
		doc.Lang = "en"
	}
	if err := htmlTmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("page: render html: %w", err)
	}
	return nil
}

type manifest struct {
	BuildID string          `json:"build_id"`
	Source  string          `json:"source,omitempty"`
	Phrases []manifestEntry `json:"phrases"`
}

type manifestEntry struct {
	Index   int    `json:"index"`
	File    string `json:"file"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
	Text    string `json:"text"`
}

// RenderManifest writes the phrase list as indented JSON.
func RenderManifest(w io.Writer, doc Document) error {
	m := manifest{BuildID: doc.BuildID, Source: doc.Source, Phrases: make([]manifestEntry, len(doc.Phrases))}
	for i, p := range doc.Phrases {
		m.Phrases[i] = manifestEntry{
			Index:   p.Index,
			File:    p.File,
			StartMS: p.Start.Milliseconds(),
			EndMS:   p.End.Milliseconds(),
			Text:    p.Text,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("page: encode manifest: %w", err)
	}
	return nil
}

// WriteSite renders every artifact into dir and returns the path of
// <base>.html.
func WriteSite(dir, base string, doc Document) (string, error) {
	htmlPath := filepath.Join(dir, base+".html")
	artifacts := []struct {
		path   string
		render func(io.Writer) error
	}{
		{filepath.Join(dir, StylesFile), RenderStyles},
		{filepath.Join(dir, ScriptFile), func(w io.Writer) error { return RenderScript(w, doc.Phrases) }},
		{filepath.Join(dir, ManifestFile), func(w io.Writer) error { return RenderManifest(w, doc) }},
		{htmlPath, func(w io.Writer) error { return RenderHTML(w, doc) }},
	}

	for _, a := range artifacts {
		var buf bytes.Buffer
		if err := a.render(&buf); err != nil {
			return "", err
		}
		if err := os.WriteFile(a.path, buf.Bytes(), 0644); err != nil {
			return "", fmt.Errorf("page: write %s: %w", filepath.Base(a.path), err)
		}
	}
	return htmlPath, nil
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}

// clock formats d as m:ss.t, or h:mm:ss.t past the hour.
func clock(d time.Duration) string {
	tenths := int(d/(100*time.Millisecond)) % 10
	s := int(d.Seconds())
	h, m, sec := s/3600, (s/60)%60, s%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%d", h, m, sec, tenths)
	}
	return fmt.Sprintf("%d:%02d.%d", m, sec, tenths)
}
