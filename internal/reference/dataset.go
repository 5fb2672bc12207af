// Package reference provides read-only access to the disaster declaration
// dataset used by the DST category.
package reference

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kaptinlin/jsonschema"

	"github.com/ppiankov/sepcheck/internal/model"
	"github.com/ppiankov/sepcheck/internal/window"
)

//go:embed schema/declarations.schema.json
var declarationsSchema []byte

// Snapshot is an immutable view of the dataset. A nil or empty snapshot
// matches nothing.
type Snapshot struct {
	declarations []model.DisasterDeclaration
	source       string
	loadedAt     time.Time
}

// NewSnapshot builds a snapshot from declarations in the given order.
func NewSnapshot(declarations []model.DisasterDeclaration) *Snapshot {
	copied := make([]model.DisasterDeclaration, len(declarations))
	copy(copied, declarations)
	return &Snapshot{declarations: copied, loadedAt: time.Now().UTC()}
}

// Empty returns a snapshot with no declarations.
func Empty() *Snapshot {
	return &Snapshot{loadedAt: time.Now().UTC()}
}

// Len returns the number of declarations.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.declarations)
}

// Source returns the file the snapshot was loaded from, if any.
func (s *Snapshot) Source() string {
	if s == nil {
		return ""
	}
	return s.source
}

// Declarations returns a copy of the declarations in stored order.
func (s *Snapshot) Declarations() []model.DisasterDeclaration {
	if s == nil {
		return nil
	}
	out := make([]model.DisasterDeclaration, len(s.declarations))
	copy(out, s.declarations)
	return out
}

// Match returns the first declaration, in stored order, that makes the
// state/county eligible on asOf:
//   - the state must match case-insensitively;
//   - an ongoing declaration matches regardless of county;
//   - a dated declaration must not have ended before asOf and must list the
//     county or the ALL sentinel.
func (s *Snapshot) Match(state, county string, asOf time.Time) (model.DisasterDeclaration, bool) {
	state = strings.TrimSpace(state)
	if s == nil || state == "" {
		return model.DisasterDeclaration{}, false
	}
	for _, d := range s.declarations {
		if !strings.EqualFold(strings.TrimSpace(d.State), state) {
			continue
		}
		if d.Ongoing() {
			return d, true
		}
		if window.DaysBetween(asOf, *d.EndDate) > 0 {
			continue // ended before asOf
		}
		if d.CoversCounty(county) {
			return d, true
		}
	}
	return model.DisasterDeclaration{}, false
}

// Load reads the dataset file. It never fails: a missing, unreadable or
// malformed file yields an empty snapshot and a warning, and individual
// entries with unusable dates are skipped.
func Load(path string, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("disaster dataset unavailable, DST checks disabled", "path", path, "error", err)
		return Empty()
	}

	snap, skipped, err := Parse(data)
	if err != nil {
		logger.Warn("disaster dataset corrupt, DST checks disabled", "path", path, "error", err)
		return Empty()
	}
	if skipped > 0 {
		logger.Warn("skipped malformed disaster declarations", "path", path, "skipped", skipped)
	}

	snap.source = path
	logger.Debug("loaded disaster dataset", "path", path, "declarations", snap.Len())
	return snap
}

// Parse validates raw dataset bytes against the schema and decodes them.
// It returns the number of entries skipped because their dates did not parse.
func Parse(data []byte) (*Snapshot, int, error) {
	if err := validateDataset(data); err != nil {
		return nil, 0, err
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode dataset: %w", err)
	}

	declarations := make([]model.DisasterDeclaration, 0, len(raw))
	skipped := 0
	for _, entry := range raw {
		var d model.DisasterDeclaration
		if err := json.Unmarshal(entry, &d); err != nil {
			skipped++
			continue
		}
		declarations = append(declarations, d)
	}

	return &Snapshot{declarations: declarations, loadedAt: time.Now().UTC()}, skipped, nil
}

func validateDataset(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("dataset is not valid JSON")
	}
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(declarationsSchema)
	if err != nil {
		return fmt.Errorf("compile dataset schema: %w", err)
	}
	result := schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("schema validation failed: %v", result.Errors)
}
