package core

import "strings"

// EnvironmentTag names a deployment environment whose security endpoint is
// known to the configuration, such as DEV or PROD.
type EnvironmentTag string

const (
	EnvironmentDev  EnvironmentTag = "DEV"
	EnvironmentQA   EnvironmentTag = "QA"
	EnvironmentUAT  EnvironmentTag = "UAT"
	EnvironmentProd EnvironmentTag = "PROD"
)

func (t EnvironmentTag) Normalize() EnvironmentTag {
	return EnvironmentTag(strings.ToUpper(strings.TrimSpace(string(t))))
}

type EnvironmentEndpoint struct {
	Address  string
	Protocol ProtocolVersion
}

type EnvironmentCatalog interface {
	Lookup(tag EnvironmentTag) (EnvironmentEndpoint, bool)
}

// StaticEnvironmentCatalog is an in-memory catalog keyed by normalized tag.
type StaticEnvironmentCatalog map[EnvironmentTag]EnvironmentEndpoint

func (c StaticEnvironmentCatalog) Lookup(tag EnvironmentTag) (EnvironmentEndpoint, bool) {
	if c == nil {
		return EnvironmentEndpoint{}, false
	}
	entry, ok := c[tag.Normalize()]
	return entry, ok
}

// NewEnvironmentCatalog builds a catalog from configured environments. Entries
// with an unknown protocol keep the zero value so the resolver default applies.
func NewEnvironmentCatalog(environments map[string]EnvironmentConfig) StaticEnvironmentCatalog {
	catalog := make(StaticEnvironmentCatalog, len(environments))
	for name, entry := range environments {
		tag := EnvironmentTag(name).Normalize()
		if tag == "" {
			continue
		}
		protocol, err := ParseProtocolVersion(entry.Protocol)
		if err != nil || strings.TrimSpace(entry.Protocol) == "" {
			protocol = ""
		}
		catalog[tag] = EnvironmentEndpoint{
			Address:  strings.TrimSpace(entry.Address),
			Protocol: protocol,
		}
	}
	return catalog
}
