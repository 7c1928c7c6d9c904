// Package descriptor defines the canonical, protocol-agnostic representation
// of a proxy endpoint parsed out of a link. Rendering it into the core's
// outbound JSON shape is done by package coreconfig.
package descriptor

// Variant is the closed set of proxy dialects this pipeline understands.
type Variant string

const (
	VariantVMess       Variant = "vmess"
	VariantVLESS       Variant = "vless"
	VariantTrojan      Variant = "trojan"
	VariantShadowsocks Variant = "shadowsocks"
	VariantTUIC        Variant = "tuic"
	VariantHysteria2   Variant = "hysteria2"
)

// TransportType is the wire transport a descriptor's outbound rides on.
type TransportType string

const (
	TransportWS          TransportType = "ws"
	TransportGRPC        TransportType = "grpc"
	TransportHTTPUpgrade TransportType = "httpupgrade"
)

// Transport carries the handful of fields sing-box needs per transport kind.
// Path/HostHeader apply to ws and httpupgrade; ServiceName applies to grpc.
type Transport struct {
	Type        TransportType
	Path        string
	HostHeader  string
	ServiceName string
}

// Reality holds the REALITY TLS extension fields (vless only, in practice).
type Reality struct {
	PublicKey string
	ShortID   string
}

// TLS is the optional TLS sub-record attached to a descriptor.
//
// Insecure is unconditionally true whenever TLS is enabled. This mirrors the
// original tester, which never verifies the remote certificate — it is a
// deliberate test-time shortcut, not a security stance, and callers must not
// reuse this descriptor to drive production traffic.
type TLS struct {
	Enabled    bool
	ServerName string
	Insecure   bool
	UTLSFP     string
	Reality    *Reality
}

// Obfs is the Hysteria2 obfuscation sub-record.
type Obfs struct {
	Type     string
	Password string
}

// Credential is the variant-specific secret bundle. Only the fields relevant
// to Variant are populated; the rest are zero.
type Credential struct {
	UUID              string // vless, vmess, tuic
	Flow              string // vless
	Password          string // trojan, tuic, hysteria2, shadowsocks
	Method            string // shadowsocks
	CongestionControl string // tuic
	AlterID           int    // vmess
	Security          string // vmess ("auto", "aes-128-gcm", ...)
}

// Descriptor is the canonical, tagged-union record for one proxy endpoint.
type Descriptor struct {
	Variant    Variant
	Server     string
	Port       int
	Credential Credential
	Transport  *Transport
	TLS        *TLS
	Obfs       *Obfs
	Tag        string
}

// Valid reports whether the descriptor has the minimum shape the Descriptor
// Filter requires: a server, a port, and — for shadowsocks — a password.
// It does not check the shadowsocks method allowlist; that is the filter's job.
func (d *Descriptor) Valid() bool {
	if d == nil {
		return false
	}
	if d.Server == "" || d.Port <= 0 || d.Port > 65535 {
		return false
	}
	if d.Variant == VariantShadowsocks && d.Credential.Password == "" {
		return false
	}
	return true
}

// LinkedDescriptor pairs the parsed descriptor with the raw link it came
// from. The raw link is what gets reported to the user; the descriptor is
// only ever used to instruct the proxy core.
type LinkedDescriptor struct {
	Link       string
	Descriptor *Descriptor
}
