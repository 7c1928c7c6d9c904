package coreconfig

import (
	"testing"

	"github.com/draco-tlw/rayzor/internal/batch"
	"github.com/draco-tlw/rayzor/internal/descriptor"
)

func slot(i, port int, d *descriptor.Descriptor) batch.Slot {
	return batch.Slot{Index: i, Port: port, Descriptor: descriptor.LinkedDescriptor{Link: "x", Descriptor: d}}
}

func TestGenerate_InboundsAndRoutesLineUp(t *testing.T) {
	b := batch.Batch{Number: 1, Slots: []batch.Slot{
		slot(0, 11000, &descriptor.Descriptor{Variant: descriptor.VariantVLESS, Server: "a", Port: 443, Credential: descriptor.Credential{UUID: "u1"}}),
		slot(1, 11001, &descriptor.Descriptor{Variant: descriptor.VariantTrojan, Server: "b", Port: 443, Credential: descriptor.Credential{Password: "p1"}}),
	}}

	cfg := Generate(b)

	if len(cfg.Inbounds) != 2 || len(cfg.Route.Rules) != 2 {
		t.Fatalf("expected 2 inbounds and 2 rules, got %d/%d", len(cfg.Inbounds), len(cfg.Route.Rules))
	}
	if len(cfg.Outbounds) != 3 { // direct + 2 proxies
		t.Fatalf("expected 3 outbounds, got %d", len(cfg.Outbounds))
	}
	if cfg.Outbounds[0]["tag"] != "direct" {
		t.Errorf("expected first outbound to be direct, got %+v", cfg.Outbounds[0])
	}

	for i, in := range cfg.Inbounds {
		wantTag := inboundTag(i)
		if in.Tag != wantTag {
			t.Errorf("inbound %d tag = %s, want %s", i, in.Tag, wantTag)
		}
		if in.ListenPort != b.Slots[i].Port {
			t.Errorf("inbound %d port = %d, want %d", i, in.ListenPort, b.Slots[i].Port)
		}
	}

	for i, rule := range cfg.Route.Rules {
		if rule.Inbound != inboundTag(i) || rule.Outbound != outboundTag(i) {
			t.Errorf("rule %d = %+v, want in=%s out=%s", i, rule, inboundTag(i), outboundTag(i))
		}
	}
}

func TestBuildOutbound_VLESSWithReality(t *testing.T) {
	d := &descriptor.Descriptor{
		Variant: descriptor.VariantVLESS,
		Server:  "h", Port: 443,
		Credential: descriptor.Credential{UUID: "u1", Flow: "xtls-rprx-vision"},
		TLS: &descriptor.TLS{
			Enabled: true, ServerName: "sni.example", Insecure: true,
			Reality: &descriptor.Reality{PublicKey: "pbk", ShortID: "sid"},
		},
		Transport: &descriptor.Transport{Type: descriptor.TransportGRPC, ServiceName: "svc"},
	}

	out := BuildOutbound(d, "proxy-0")

	if out["type"] != "vless" || out["uuid"] != "u1" || out["flow"] != "xtls-rprx-vision" {
		t.Errorf("unexpected vless fields: %+v", out)
	}
	transport, ok := out["transport"].(map[string]any)
	if !ok || transport["service_name"] != "svc" {
		t.Errorf("unexpected transport: %+v", out["transport"])
	}
	tls, ok := out["tls"].(map[string]any)
	if !ok || tls["server_name"] != "sni.example" {
		t.Errorf("unexpected tls: %+v", out["tls"])
	}
	reality, ok := tls["reality"].(map[string]any)
	if !ok || reality["public_key"] != "pbk" || reality["short_id"] != "sid" {
		t.Errorf("unexpected reality: %+v", tls["reality"])
	}
}

func TestBuildOutbound_ShadowsocksMinimal(t *testing.T) {
	d := &descriptor.Descriptor{
		Variant: descriptor.VariantShadowsocks,
		Server:  "h", Port: 8388,
		Credential: descriptor.Credential{Method: "aes-256-gcm", Password: "pw"},
	}

	out := BuildOutbound(d, "proxy-0")

	if out["method"] != "aes-256-gcm" || out["password"] != "pw" {
		t.Errorf("unexpected shadowsocks fields: %+v", out)
	}
	if _, present := out["transport"]; present {
		t.Errorf("expected no transport for plain shadowsocks, got %+v", out["transport"])
	}
	if _, present := out["tls"]; present {
		t.Errorf("expected no tls for plain shadowsocks, got %+v", out["tls"])
	}
}

func TestBuildOutbound_Hysteria2WithObfs(t *testing.T) {
	d := &descriptor.Descriptor{
		Variant: descriptor.VariantHysteria2,
		Server:  "h", Port: 443,
		Credential: descriptor.Credential{Password: "pw"},
		Obfs:       &descriptor.Obfs{Type: "salamander", Password: "op"},
		TLS:        &descriptor.TLS{Enabled: true, ServerName: "h", Insecure: true},
	}

	out := BuildOutbound(d, "proxy-0")

	obfs, ok := out["obfs"].(map[string]any)
	if !ok || obfs["type"] != "salamander" || obfs["password"] != "op" {
		t.Errorf("unexpected obfs: %+v", out["obfs"])
	}
}

func TestBuildOutbound_TUIC(t *testing.T) {
	d := &descriptor.Descriptor{
		Variant: descriptor.VariantTUIC,
		Server:  "h", Port: 443,
		Credential: descriptor.Credential{UUID: "u1", Password: "pw", CongestionControl: "bbr"},
	}

	out := BuildOutbound(d, "proxy-0")

	if out["uuid"] != "u1" || out["password"] != "pw" || out["congestion_control"] != "bbr" {
		t.Errorf("unexpected tuic fields: %+v", out)
	}
}
