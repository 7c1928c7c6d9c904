// Package coreconfig materializes the single multi-inbound/outbound JSON
// configuration the proxy core is spawned with for one batch: one SOCKS5
// inbound and one renamed outbound per slot, a direct outbound, and a
// routing table pairing each inbound to its outbound by index.
package coreconfig

import (
	"fmt"

	"github.com/draco-tlw/rayzor/internal/batch"
	"github.com/draco-tlw/rayzor/internal/descriptor"
)

// Config is the top-level JSON document handed to the proxy core via
// `<core> run -c <path>`.
type Config struct {
	Log       Log              `json:"log"`
	Inbounds  []Inbound        `json:"inbounds"`
	Outbounds []map[string]any `json:"outbounds"`
	Route     Route            `json:"route"`
}

// Log suppresses the core's normal console output; probes read liveness
// from the SOCKS5/HTTP round-trip, not the core's own logs.
type Log struct {
	Level string `json:"level"`
}

// Inbound is one SOCKS5 listener bound to a batch slot's local port.
type Inbound struct {
	Type       string `json:"type"`
	Tag        string `json:"tag"`
	Listen     string `json:"listen"`
	ListenPort int    `json:"listen_port"`
}

// Route is the routing table pairing each inbound to its matching outbound.
type Route struct {
	Rules               []Rule `json:"rules"`
	AutoDetectInterface bool   `json:"auto_detect_interface"`
}

// Rule maps one batch slot's inbound tag to its outbound tag.
type Rule struct {
	Inbound  string `json:"inbound"`
	Outbound string `json:"outbound"`
}

func inboundTag(i int) string  { return fmt.Sprintf("in-%d", i) }
func outboundTag(i int) string { return fmt.Sprintf("proxy-%d", i) }

// Generate builds the JSON configuration for one batch.
func Generate(b batch.Batch) Config {
	cfg := Config{
		Log:       Log{Level: "panic"},
		Inbounds:  make([]Inbound, 0, len(b.Slots)),
		Outbounds: make([]map[string]any, 0, len(b.Slots)+1),
		Route:     Route{AutoDetectInterface: true, Rules: make([]Rule, 0, len(b.Slots))},
	}

	cfg.Outbounds = append(cfg.Outbounds, map[string]any{"type": "direct", "tag": "direct"})

	for _, slot := range b.Slots {
		cfg.Inbounds = append(cfg.Inbounds, Inbound{
			Type:       "socks",
			Tag:        inboundTag(slot.Index),
			Listen:     "127.0.0.1",
			ListenPort: slot.Port,
		})

		cfg.Outbounds = append(cfg.Outbounds, BuildOutbound(slot.Descriptor.Descriptor, outboundTag(slot.Index)))

		cfg.Route.Rules = append(cfg.Route.Rules, Rule{
			Inbound:  inboundTag(slot.Index),
			Outbound: outboundTag(slot.Index),
		})
	}

	return cfg
}

// BuildOutbound renders one descriptor into the core's outbound JSON shape,
// overwriting its tag with the batch-assigned value.
func BuildOutbound(d *descriptor.Descriptor, tag string) map[string]any {
	out := map[string]any{
		"tag":         tag,
		"type":        string(d.Variant),
		"server":      d.Server,
		"server_port": d.Port,
	}

	switch d.Variant {
	case descriptor.VariantVLESS:
		out["uuid"] = d.Credential.UUID
		if d.Credential.Flow != "" {
			out["flow"] = d.Credential.Flow
		}
	case descriptor.VariantVMess:
		out["uuid"] = d.Credential.UUID
		out["security"] = d.Credential.Security
		out["alter_id"] = d.Credential.AlterID
	case descriptor.VariantTrojan:
		out["password"] = d.Credential.Password
	case descriptor.VariantShadowsocks:
		out["method"] = d.Credential.Method
		out["password"] = d.Credential.Password
	case descriptor.VariantTUIC:
		out["uuid"] = d.Credential.UUID
		out["password"] = d.Credential.Password
		out["congestion_control"] = d.Credential.CongestionControl
	case descriptor.VariantHysteria2:
		out["password"] = d.Credential.Password
		if d.Obfs != nil {
			obfs := map[string]any{"type": d.Obfs.Type}
			if d.Obfs.Password != "" {
				obfs["password"] = d.Obfs.Password
			}
			out["obfs"] = obfs
		}
	}

	if d.Transport != nil {
		transport := map[string]any{"type": string(d.Transport.Type)}
		switch d.Transport.Type {
		case descriptor.TransportGRPC:
			transport["service_name"] = d.Transport.ServiceName
		default: // ws, httpupgrade
			transport["path"] = d.Transport.Path
			if d.Transport.HostHeader != "" {
				transport["headers"] = map[string]string{"Host": d.Transport.HostHeader}
			}
		}
		out["transport"] = transport
	}

	if d.TLS != nil && d.TLS.Enabled {
		tls := map[string]any{
			"enabled":     true,
			"server_name": d.TLS.ServerName,
			"insecure":    d.TLS.Insecure,
		}
		if d.TLS.UTLSFP != "" {
			tls["utls"] = map[string]any{"enabled": true, "fingerprint": d.TLS.UTLSFP}
		}
		if d.TLS.Reality != nil {
			tls["reality"] = map[string]any{
				"enabled":    true,
				"public_key": d.TLS.Reality.PublicKey,
				"short_id":   d.TLS.Reality.ShortID,
			}
		}
		out["tls"] = tls
	}

	return out
}
