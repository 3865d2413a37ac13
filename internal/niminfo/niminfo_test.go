package niminfo

import (
	"testing"
)

const sampleNiminfo = `#------------------ Network Install Manager ---------------
# warning - this file contains NIM configuration information
#       and should only be updated by NIM
export NIM_NAME=quimby007
export NIM_HOSTNAME=quimby007.aus.century.com
export NIM_CONFIGURATION=standalone
export NIM_MASTER_HOSTNAME=quimby.aus.century.com
export NIM_MASTER_PORT=1058
export NIM_REGISTRATION_TYPE="client"
export NIM_BOS_IMAGE=/SPOT/usr/sys/inst.images/installp/ppc/bos
`

func TestParse(t *testing.T) {
	info, err := Parse(sampleNiminfo)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if info.Name != "quimby007" {
		t.Errorf("Name = %q, want quimby007", info.Name)
	}
	if info.MasterHostname != "quimby.aus.century.com" {
		t.Errorf("MasterHostname = %q, want quimby.aus.century.com", info.MasterHostname)
	}
	if info.Configuration != "standalone" {
		t.Errorf("Configuration = %q, want standalone", info.Configuration)
	}
	if info.MasterPort != "1058" {
		t.Errorf("MasterPort = %q, want 1058", info.MasterPort)
	}
	if info.RegType != "client" {
		t.Errorf("RegType = %q, want client (quotes stripped)", info.RegType)
	}
	if info.Raw["NIM_BOS_IMAGE"] == "" {
		t.Error("expected unmodeled keys to be kept in Raw")
	}
}

func TestParseMissingRequiredKeys(t *testing.T) {
	if _, err := Parse("export NIM_MASTER_HOSTNAME=quimby"); err == nil {
		t.Error("expected error when NIM_NAME is missing")
	}
	if _, err := Parse("export NIM_NAME=quimby007"); err == nil {
		t.Error("expected error when NIM_MASTER_HOSTNAME is missing")
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	text := `garbage line without equals
export NIM_NAME=c1
export NIM_MASTER_HOSTNAME=m1
=value_without_key
`
	info, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if info.Name != "c1" || info.MasterHostname != "m1" {
		t.Errorf("got Name=%q MasterHostname=%q", info.Name, info.MasterHostname)
	}
}

func TestMasterIsStrict(t *testing.T) {
	info := &Info{MasterHostname: "node10.example.com"}

	// The historical substring check matched "node1" inside "node10";
	// strict comparison must not.
	if info.MasterIs("node1", false) {
		t.Error("strict match must not treat node1 as node10")
	}
	if !info.MasterIs("node10", false) {
		t.Error("strict match should accept the unqualified host name")
	}
	if !info.MasterIs("node10.example.com", false) {
		t.Error("strict match should accept the fully qualified name")
	}
}

func TestMasterIsLoose(t *testing.T) {
	info := &Info{MasterHostname: "node10.example.com"}

	if !info.MasterIs("node1", true) {
		t.Error("loose match reproduces the historical substring behavior")
	}
	if info.MasterIs("node2", true) {
		t.Error("loose match should still reject non-substrings")
	}
}
