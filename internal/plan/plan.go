// Package plan loads and validates migration plan files. A plan is a
// small JSON document carrying the workflow parameters plus an optional
// environment reference; it is validated against an embedded JSON
// Schema before anything touches a host.
package plan

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/nimplane/nimplane/internal/migration"
)

//go:embed schema.json
var planSchema string

// Plan is a parsed migration plan file.
type Plan struct {
	Environment string     `json:"environment,omitempty"`
	Description string     `json:"description,omitempty"`
	Parameters  Parameters `json:"parameters"`
}

// Parameters mirrors the migration parameter surface in file form.
type Parameters struct {
	MasterA    string `json:"master_a"`
	MasterB    string `json:"master_b"`
	AltDisk    string `json:"alt_disk"`
	LppSource  string `json:"lpp_source"`
	Spot       string `json:"spot"`
	FilesetSrc string `json:"fileset_src"`
	BackupFile string `json:"backup_file,omitempty"`
}

// MigrationParameters converts the file form into the immutable
// workflow parameters.
func (p *Plan) MigrationParameters() *migration.Parameters {
	return &migration.Parameters{
		MasterA:    p.Parameters.MasterA,
		MasterB:    p.Parameters.MasterB,
		AltDisk:    p.Parameters.AltDisk,
		LppSource:  p.Parameters.LppSource,
		Spot:       p.Parameters.Spot,
		FilesetSrc: p.Parameters.FilesetSrc,
		BackupFile: p.Parameters.BackupFile,
	}
}

// Issue is one schema violation, in the shape IDE integrations expect.
type Issue struct {
	File     string `json:"file"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
}

// ValidationResult collects the issues for one plan file.
type ValidationResult struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues"`
}

// Load reads, schema-validates and parses a plan file.
func Load(path string) (*Plan, error) {
	result, raw, err := validateFile(path)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		msgs := make([]string, len(result.Issues))
		for i, issue := range result.Issues {
			msgs[i] = issue.Message
		}
		return nil, fmt.Errorf("plan %s is invalid:\n  %s", path, strings.Join(msgs, "\n  "))
	}

	var p Plan
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks a plan file against the schema without constructing
// the plan, for `nimplane validate plan`.
func Validate(path string) (*ValidationResult, error) {
	result, _, err := validateFile(path)
	return result, err
}

func validateFile(path string) (*ValidationResult, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading plan: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(planSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)
	res, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		// Not valid JSON at all; report it as a single issue rather
		// than an internal error.
		return &ValidationResult{
			Valid: false,
			Issues: []Issue{{
				File:     path,
				Severity: "error",
				Message:  err.Error(),
				Code:     "plan_parse_error",
			}},
		}, raw, nil
	}

	result := &ValidationResult{Valid: res.Valid()}
	for _, desc := range res.Errors() {
		result.Issues = append(result.Issues, Issue{
			File:     path,
			Severity: "error",
			Message:  fmt.Sprintf("%s: %s", desc.Field(), desc.Description()),
			Code:     desc.Type(),
		})
	}
	return result, raw, nil
}
