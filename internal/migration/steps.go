package migration

import (
	"fmt"

	"github.com/nimplane/nimplane/internal/remote"
	"github.com/nimplane/nimplane/internal/runner"
)

// nim method paths on AIX. The database backup and restore methods are
// not on the default PATH.
const (
	backupDBMethod  = "/usr/lpp/bos.sysmgt/nim/methods/m_backup_db"
	restoreDBMethod = "/usr/lpp/bos.sysmgt/nim/methods/m_restore_db"
	masterFileset   = "bos.sysmgt.nim.master"
	filesetStaging  = "/tmp/nimplane_master_fileset"
)

// scpEndpoint renders user@address:path for a fleet host.
func scpEndpoint(hosts remote.HostSet, name, filePath string) string {
	h := hosts.Lookup(name)
	user := h.User
	if user == "" {
		user = "root"
	}
	return fmt.Sprintf("%s@%s:%s", user, h.Address, filePath)
}

// BackupPhaseSteps builds the ordered delegated steps of phase
// backup_and_migration. Steps 1-6 of the documented sequence are
// delegated operations; the pause and the operator guidance that follow
// are handled by the Migrator once all six succeed.
func BackupPhaseSteps(p *Parameters, hosts remote.HostSet) []runner.Step {
	backup := p.ResolveBackupFile()
	return []runner.Step{
		{
			Label:    "back up the NIM database",
			Host:     p.MasterB,
			Command:  remote.Command(backupDBMethod, backup),
			Mutating: true,
		},
		{
			Label:    "fetch the database backup to the controller",
			Host:     remote.LocalHost,
			Command:  remote.Command("scp", "-o", "BatchMode=yes", scpEndpoint(hosts, p.MasterB, backup), localBackupPath(backup)),
			Mutating: true,
		},
		{
			Label:    "unconfigure the NIM master database",
			Host:     p.MasterB,
			Command:  remote.Command("nim", "-o", "unconfig", "master"),
			Mutating: true,
		},
		{
			Label:    "remove the master fileset",
			Host:     p.MasterB,
			Command:  remote.Command("installp", "-u", masterFileset),
			Mutating: true,
		},
		{
			Label: fmt.Sprintf("register %s as a standalone client of %s", p.MasterB, p.MasterA),
			Host:  p.MasterA,
			Command: fmt.Sprintf("nim -o define -t standalone -a platform=chrp -a netboot_kernel=64 -a if1=%s %s",
				remote.Quote(fmt.Sprintf("find_net %s 0", p.MasterB)), remote.Quote(p.MasterB)),
			Mutating: true,
		},
		{
			Label:    fmt.Sprintf("migrate %s onto %s via nimadm", p.MasterB, p.AltDisk),
			Host:     p.MasterA,
			Command:  remote.Command("nimadm", "-c", p.MasterB, "-s", p.Spot, "-l", p.LppSource, "-d", p.AltDisk, "-Y"),
			Mutating: true,
		},
	}
}

// RestorePhaseSteps builds the ordered delegated steps of phase
// db_restore. backupFile must be the exact artifact name recorded by
// phase one.
func RestorePhaseSteps(p *Parameters, hosts remote.HostSet, backupFile string) []runner.Step {
	return []runner.Step{
		{
			Label:    fmt.Sprintf("copy the master fileset to %s", p.MasterB),
			Host:     remote.LocalHost,
			Command:  remote.Command("scp", "-o", "BatchMode=yes", "-r", p.FilesetSrc, scpEndpoint(hosts, p.MasterB, filesetStaging)),
			Mutating: true,
		},
		{
			Label: "install the master fileset",
			Host:  p.MasterB,
			// -X extends filesystems automatically when space runs out.
			Command:  remote.Command("installp", "-aXYg", "-d", filesetStaging, masterFileset),
			Mutating: true,
		},
		{
			Label:    fmt.Sprintf("return the database backup to %s", p.MasterB),
			Host:     remote.LocalHost,
			Command:  remote.Command("scp", "-o", "BatchMode=yes", localBackupPath(backupFile), scpEndpoint(hosts, p.MasterB, backupFile)),
			Mutating: true,
		},
		{
			Label:    "restore the NIM database",
			Host:     p.MasterB,
			Command:  remote.Command(restoreDBMethod, backupFile),
			Mutating: true,
		},
	}
}
