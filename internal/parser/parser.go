// Package parser extracts frontmatter, semantic annotations and inline
// queries from Markdown pages.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/semwiki/internal/checksum"
	"github.com/starford/semwiki/internal/models"
)

var (
	annotationRe = regexp.MustCompile(`\[\[([^\[\]|]+?)::([^\[\]]*?)\]\]`)
	askRe        = regexp.MustCompile(`(?s)\{\{#ask:(.*?)\}\}`)
)

// Frontmatter keys carrying annotations.
const (
	PropertiesKey = "properties"
	SubobjectsKey = "subobjects"
)

// Query is an inline query embedded in a page.
type Query struct {
	ID   string
	Text string
}

// Result holds the output of parsing a Markdown page.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Title       string
	Annotations []models.Annotation
	Queries     []Query
}

// Parse extracts frontmatter, body, annotations and inline queries from raw
// Markdown bytes. Frontmatter annotations come first, in key order, then
// inline annotations in document order.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	queries, rest := extractQueries(body)
	annotations := frontmatterAnnotations(fm)
	annotations = append(annotations, inlineAnnotations(rest)...)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       deriveTitle(fm, body),
		Annotations: annotations,
		Queries:     queries,
	}, nil
}

// QueryID identifies an inline query by its normalised text.
func QueryID(text string) string {
	return checksum.Sum([]byte(strings.Join(strings.Fields(text), " ")))[:32]
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	// Find end delimiter.
	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter: everything is body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	// Body starts after closing delimiter line.
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML falls back to a plain body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// extractQueries returns the {{#ask:...}} queries of body in document
// order, without duplicates, and the body with the queries removed.
func extractQueries(body string) ([]Query, string) {
	var out []Query
	seen := make(map[string]struct{})
	for _, m := range askRe.FindAllStringSubmatch(body, -1) {
		text := strings.TrimSpace(m[1])
		id := QueryID(text)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, Query{ID: id, Text: text})
	}
	return out, askRe.ReplaceAllString(body, "")
}

// inlineAnnotations collects [[Property::Value]] and
// [[Property::Value|label]] annotations.
func inlineAnnotations(body string) []models.Annotation {
	var out []models.Annotation
	for _, m := range annotationRe.FindAllStringSubmatch(body, -1) {
		prop := strings.TrimSpace(m[1])
		value := m[2]
		if i := strings.Index(value, "|"); i >= 0 {
			value = value[:i]
		}
		value = strings.TrimSpace(value)
		if prop == "" || value == "" {
			continue
		}
		out = append(out, models.Annotation{Property: prop, Value: value})
	}
	return out
}

// frontmatterAnnotations reads the properties and subobjects maps.
func frontmatterAnnotations(fm map[string]interface{}) []models.Annotation {
	if fm == nil {
		return nil
	}
	var out []models.Annotation
	if props, ok := fm[PropertiesKey].(map[string]interface{}); ok {
		out = appendProperties(out, "", props)
	}
	if subs, ok := fm[SubobjectsKey].(map[string]interface{}); ok {
		for _, name := range sortedKeys(subs) {
			props, ok := subs[name].(map[string]interface{})
			if !ok || strings.TrimSpace(name) == "" {
				continue
			}
			out = appendProperties(out, strings.TrimSpace(name), props)
		}
	}
	return out
}

func appendProperties(out []models.Annotation, sub string, props map[string]interface{}) []models.Annotation {
	for _, name := range sortedKeys(props) {
		prop := strings.TrimSpace(name)
		if prop == "" {
			continue
		}
		values, ok := props[name].([]interface{})
		if !ok {
			values = []interface{}{props[name]}
		}
		for _, v := range values {
			if s, ok := scalar(v); ok {
				out = append(out, models.Annotation{Subobject: sub, Property: prop, Value: s})
			}
		}
	}
	return out
}

func scalar(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		x = strings.TrimSpace(x)
		return x, x != ""
	case int:
		return strconv.Itoa(x), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 {
			return x.Format(time.DateOnly), true
		}
		return x.Format(time.RFC3339), true
	case nil, map[string]interface{}, []interface{}:
		return "", false
	default:
		return fmt.Sprint(x), true
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
