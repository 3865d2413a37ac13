package migration

import (
	"fmt"
	"path"

	"github.com/nimplane/nimplane/internal/runner"
)

// Parameters is the flat, immutable configuration for one migration
// invocation. Every field except BackupFile is required; BackupFile
// defaults to a name derived from the outgoing master.
type Parameters struct {
	MasterA    string // orchestrating master, stays in place
	MasterB    string // outgoing master, migrated and demoted to client
	AltDisk    string // free disk on master B for the alternate-disk copy
	LppSource  string // NIM lpp_source resource for the new OS level
	Spot       string // NIM SPOT resource for the new OS level
	FilesetSrc string // controller-side path to the master fileset images
	BackupFile string // path on master B for the database backup artifact
}

// requiredParams lists the six gate parameters in reporting order.
var requiredParams = []struct {
	name  string
	value func(*Parameters) string
}{
	{"master_a", func(p *Parameters) string { return p.MasterA }},
	{"master_b", func(p *Parameters) string { return p.MasterB }},
	{"alt_disk", func(p *Parameters) string { return p.AltDisk }},
	{"lpp_source", func(p *Parameters) string { return p.LppSource }},
	{"spot", func(p *Parameters) string { return p.Spot }},
	{"fileset_src", func(p *Parameters) string { return p.FilesetSrc }},
}

// Validate checks the entry gate: every required parameter must be
// non-empty before any step runs. The first empty one is reported as a
// ConfigurationError.
func (p *Parameters) Validate() error {
	for _, req := range requiredParams {
		if req.value(p) == "" {
			return &runner.ConfigurationError{Parameter: req.name}
		}
	}
	return nil
}

// ResolveBackupFile returns the backup artifact path, deriving the
// default when none was supplied. The same literal string is threaded
// through both phases; it is never parsed or inspected.
func (p *Parameters) ResolveBackupFile() string {
	if p.BackupFile != "" {
		return p.BackupFile
	}
	return fmt.Sprintf("/tmp/%s_nimdb.backup", p.MasterB)
}

// localBackupPath is where the fetched artifact lands on the
// controller.
func localBackupPath(backupFile string) string {
	return "./" + path.Base(backupFile)
}
