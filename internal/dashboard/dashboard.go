// Package dashboard exports per-borough statistics for the static web
// dashboard: JSON documents, a script file that assigns the same JSON, and
// a tidy parquet table.
package dashboard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/nychvs-cli/internal/analysis"
	"github.com/KaramelBytes/nychvs-cli/internal/utils"
)

// Artifact file names.
const (
	StatsFile   = "dashboard_stats.json"
	FullFile    = "dashboard_stats_full.json"
	ScriptFile  = "dashboard_data.js"
	ParquetFile = "dashboard_stats.parquet"
)

// ScriptVar is the variable the script file assigns.
const ScriptVar = "dashboardData"

// Flat maps borough -> metric -> mean.
type Flat map[string]map[string]float64

// Borough is the nested entry of one borough.
type Borough struct {
	N      int                `json:"n"`
	Means  map[string]float64 `json:"means"`
	Gender map[string]float64 `json:"gender,omitempty"`
	Race   map[string]float64 `json:"race,omitempty"`
}

// Meta describes the run that produced a document.
type Meta struct {
	RunID       string         `json:"run_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Rows        map[string]int `json:"rows"`
}

// Document is the nested dashboard dictionary.
type Document struct {
	Meta     Meta               `json:"meta"`
	Boroughs map[string]Borough `json:"boroughs"`
}

// Sources name the aggregates a Document is built from.
type Sources struct {
	// Means holds one group per borough with the metric means.
	Means *analysis.Aggregate
	// GenderCol and RaceCol are fraction columns of Means' groups.
	GenderCol string
	RaceCol   string
	Metrics   []string
	Rows      map[string]int
}

// Build assembles the document. Each run gets a fresh run id.
func Build(src Sources) (*Document, error) {
	if src.Means == nil {
		return nil, errors.New("dashboard: no borough aggregate")
	}
	if len(src.Means.Grouping.By) != 1 {
		return nil, fmt.Errorf("dashboard: aggregate %s must be keyed by borough alone", src.Means.Grouping.Name)
	}
	doc := &Document{
		Meta: Meta{
			RunID:       uuid.NewString(),
			GeneratedAt: time.Now().UTC().Truncate(time.Second),
			Rows:        src.Rows,
		},
		Boroughs: make(map[string]Borough, len(src.Means.Groups)),
	}
	for _, g := range src.Means.Groups {
		b := Borough{N: g.Size, Means: make(map[string]float64, len(src.Metrics))}
		for _, m := range src.Metrics {
			v, ok := g.Means[m]
			if !ok {
				return nil, fmt.Errorf("dashboard: metric %s was not aggregated", m)
			}
			b.Means[m] = v
		}
		if src.GenderCol != "" {
			b.Gender = copyMap(g.Fractions[src.GenderCol])
		}
		if src.RaceCol != "" {
			b.Race = copyMap(g.Fractions[src.RaceCol])
		}
		doc.Boroughs[g.Key[0]] = b
	}
	return doc, nil
}

func copyMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Flat drops the nested maps and the meta block.
func (d *Document) Flat() Flat {
	out := make(Flat, len(d.Boroughs))
	for name, b := range d.Boroughs {
		out[name] = copyMap(b.Means)
	}
	return out
}

// Names returns the borough names in order.
func (d *Document) Names() []string {
	out := make([]string, 0, len(d.Boroughs))
	for n := range d.Boroughs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// WriteJSON writes the flat and the nested documents.
func (d *Document) WriteJSON(flatPath, fullPath string) error {
	b, err := utils.PrettyJSON(d.Flat())
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(flatPath, b); err != nil {
		return fmt.Errorf("write %s: %w", flatPath, err)
	}
	b, err = utils.PrettyJSON(d)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(fullPath, b); err != nil {
		return fmt.Errorf("write %s: %w", fullPath, err)
	}
	return nil
}

// WriteScript writes "const dashboardData = <json>;" for the nested document.
func (d *Document) WriteScript(path string) error {
	b, err := utils.PrettyJSON(d)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "const %s = ", ScriptVar)
	buf.Write(b)
	buf.WriteString(";\n")
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadScript parses a script file written by WriteScript.
func ReadScript(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	body := bytes.TrimSpace(raw)
	prefix := []byte("const " + ScriptVar + " =")
	if !bytes.HasPrefix(body, prefix) {
		return nil, fmt.Errorf("read script %s: missing %q assignment", path, ScriptVar)
	}
	body = bytes.TrimSuffix(bytes.TrimSpace(body[len(prefix):]), []byte(";"))
	var d Document
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	return &d, nil
}
