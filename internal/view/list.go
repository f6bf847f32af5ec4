// Package view holds the roster list container that both the client and the
// server index page render into.
package view

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
)

// ClientListID is the element id the page renders the roster into.
const ClientListID = "client-list"

// ClientLine formats one roster entry. i is the position in the received
// sequence, not a stable id.
func ClientLine(i int, id string) string {
	return fmt.Sprintf("Client %d: %s", i, id)
}

func ClientLines(ids []string) []string {
	lines := make([]string, 0, len(ids))
	for i, id := range ids {
		lines = append(lines, ClientLine(i, id))
	}
	return lines
}

// List is an ordered list element. Safe for concurrent use.
type List struct {
	id    string
	mu    sync.RWMutex
	items []string
}

func NewList(id string) *List {
	return &List{id: id}
}

func (l *List) Append(text string) {
	l.mu.Lock()
	l.items = append(l.items, text)
	l.mu.Unlock()
}

// Replace clears the list and appends lines in one step, so readers never
// see a half-rendered list.
func (l *List) Replace(lines []string) {
	l.mu.Lock()
	l.items = append(l.items[:0:0], lines...)
	l.mu.Unlock()
}

func (l *List) Items() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// WriteTo renders the list as plain text, one item per line.
func (l *List) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, item := range l.Items() {
		b.WriteString(item)
		b.WriteByte('\n')
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

var listTmpl = template.Must(template.New("list").Parse(
	`<ul id="{{.ID}}">{{range .Items}}<li>{{.}}</li>{{end}}</ul>`))

// RenderHTML writes the list as a <ul>. Items are escaped.
func (l *List) RenderHTML(w io.Writer) error {
	return listTmpl.Execute(w, struct {
		ID    string
		Items []string
	}{ID: l.id, Items: l.Items()})
}

// HTML is RenderHTML into a string, for embedding in a larger template.
func (l *List) HTML() (template.HTML, error) {
	var b strings.Builder
	if err := l.RenderHTML(&b); err != nil {
		return "", err
	}
	return template.HTML(b.String()), nil
}
