// Package filter rejects descriptors the downstream proxy core cannot
// serve: unsupported shadowsocks methods, transports the core treats as
// plain TCP (stripped, not rejected), and descriptors missing a server or
// port.
package filter

import (
	"strings"

	"github.com/draco-tlw/rayzor/internal/descriptor"
)

// transportsTreatedAsTCP are transport type tokens the core handles as a
// bare TCP connection; the transport sub-record is pointless noise for
// these and is stripped. xhttp additionally disqualifies the descriptor
// outright — the core does not support it at all.
var transportsTreatedAsTCP = map[string]bool{
	"tcp":  true,
	"raw":  true,
	"none": true,
	"":     true,
}

// Accept reports whether a descriptor passes the filter predicates, mutating
// it in place (stripping a no-op transport) as a side effect when it does.
func Accept(d *descriptor.Descriptor) bool {
	if d == nil {
		return false
	}

	if d.Variant == descriptor.VariantShadowsocks {
		method := strings.ToLower(d.Credential.Method)
		if !descriptor.ValidShadowsocksMethods[method] {
			return false
		}
		if d.Credential.Password == "" {
			return false
		}
	}

	if d.Transport != nil {
		t := string(d.Transport.Type)
		if t == "xhttp" {
			return false
		}
		if transportsTreatedAsTCP[t] {
			d.Transport = nil
		}
	}

	if d.Server == "" || d.Port <= 0 {
		return false
	}

	return true
}

// Filter walks a slice of linked descriptors and returns only the accepted
// ones, in their original relative order.
func Filter(in []descriptor.LinkedDescriptor) []descriptor.LinkedDescriptor {
	out := make([]descriptor.LinkedDescriptor, 0, len(in))
	for _, ld := range in {
		if Accept(ld.Descriptor) {
			out = append(out, ld)
		}
	}
	return out
}
