package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validPlan = `{
  "environment": "lab",
  "description": "Migrate nim-b via nim-a",
  "parameters": {
    "master_a": "nim-a",
    "master_b": "nim-b",
    "alt_disk": "hdisk1",
    "lpp_source": "lpp_73",
    "spot": "spot_73",
    "fileset_src": "/export/nim/master-fileset",
    "backup_file": "/tmp/nimdb.backup"
  }
}`

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing plan: %v", err)
	}
	return path
}

func TestLoadValidPlan(t *testing.T) {
	p, err := Load(writePlan(t, validPlan))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if p.Environment != "lab" {
		t.Errorf("Environment = %q", p.Environment)
	}

	params := p.MigrationParameters()
	if params.MasterA != "nim-a" || params.MasterB != "nim-b" {
		t.Errorf("masters = %q/%q", params.MasterA, params.MasterB)
	}
	if params.BackupFile != "/tmp/nimdb.backup" {
		t.Errorf("BackupFile = %q", params.BackupFile)
	}
	if err := params.Validate(); err != nil {
		t.Errorf("loaded parameters should validate: %v", err)
	}
}

func TestLoadRejectsMissingParameter(t *testing.T) {
	missingSpot := `{
  "parameters": {
    "master_a": "nim-a",
    "master_b": "nim-b",
    "alt_disk": "hdisk1",
    "lpp_source": "lpp_73",
    "fileset_src": "/export/nim/master-fileset"
  }
}`
	_, err := Load(writePlan(t, missingSpot))
	if err == nil {
		t.Fatal("expected schema violation for missing spot")
	}
	if !strings.Contains(err.Error(), "spot") {
		t.Errorf("error should name the missing property: %v", err)
	}
}

func TestLoadRejectsUnknownProperty(t *testing.T) {
	extra := `{
  "parameters": {
    "master_a": "a", "master_b": "b", "alt_disk": "d",
    "lpp_source": "l", "spot": "s", "fileset_src": "f",
    "phase": "db_restore"
  }
}`
	if _, err := Load(writePlan(t, extra)); err == nil {
		t.Error("the phase selector belongs on the command line, not in the plan")
	}
}

func TestValidateReportsInvalidJSON(t *testing.T) {
	result, err := Validate(writePlan(t, "{not json"))
	if err != nil {
		t.Fatalf("Validate should report issues, not fail: %v", err)
	}
	if result.Valid {
		t.Fatal("malformed JSON reported valid")
	}
	if len(result.Issues) == 0 || result.Issues[0].Severity != "error" {
		t.Errorf("issues = %+v", result.Issues)
	}
}

func TestValidateAcceptsValidPlan(t *testing.T) {
	result, err := Validate(writePlan(t, validPlan))
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("valid plan reported invalid: %+v", result.Issues)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing plan file")
	}
}
