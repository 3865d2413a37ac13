// Package niminfo parses the /etc/niminfo bootstrap file a NIM client
// keeps locally. The file is a series of shell export lines:
//
//	#------------------ Network Install Manager ---------------
//	export NIM_NAME=quimby007
//	export NIM_HOSTNAME=quimby007.aus.century.com
//	export NIM_CONFIGURATION=standalone
//	export NIM_MASTER_HOSTNAME=quimby.aus.century.com
//	export NIM_MASTER_PORT=1058
//
// Values may be double-quoted. Comment lines and lines that do not
// match the export grammar are skipped.
package niminfo

import (
	"fmt"
	"strings"
)

// Info is the parsed client record.
type Info struct {
	Name           string // NIM_NAME
	Hostname       string // NIM_HOSTNAME
	Configuration  string // NIM_CONFIGURATION
	MasterHostname string // NIM_MASTER_HOSTNAME
	MasterPort     string // NIM_MASTER_PORT
	RegType        string // NIM_REGISTRATION_TYPE, absent on older levels

	// Raw holds every parsed key, including ones this package does not
	// model explicitly.
	Raw map[string]string
}

// Parse reads niminfo text into an Info. NIM_NAME and
// NIM_MASTER_HOSTNAME are required; everything else is optional.
func Parse(text string) (*Info, error) {
	info := &Info{Raw: make(map[string]string)}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if key == "" {
			continue
		}
		info.Raw[key] = value
	}

	info.Name = info.Raw["NIM_NAME"]
	info.Hostname = info.Raw["NIM_HOSTNAME"]
	info.Configuration = info.Raw["NIM_CONFIGURATION"]
	info.MasterHostname = info.Raw["NIM_MASTER_HOSTNAME"]
	info.MasterPort = info.Raw["NIM_MASTER_PORT"]
	info.RegType = info.Raw["NIM_REGISTRATION_TYPE"]

	if info.Name == "" {
		return nil, fmt.Errorf("niminfo: missing NIM_NAME")
	}
	if info.MasterHostname == "" {
		return nil, fmt.Errorf("niminfo: missing NIM_MASTER_HOSTNAME")
	}
	return info, nil
}

// MasterIs reports whether the record names master as this client's
// master. Strict mode compares the unqualified host names exactly;
// loose mode reproduces the historical substring comparison, which can
// false-positive on prefixes ("node1" inside "node10").
func (i *Info) MasterIs(master string, loose bool) bool {
	if loose {
		return strings.Contains(i.MasterHostname, master)
	}
	return shortName(i.MasterHostname) == shortName(master)
}

func shortName(host string) string {
	host = strings.TrimSpace(host)
	if idx := strings.IndexByte(host, '.'); idx > 0 {
		return host[:idx]
	}
	return host
}
