// Package linkparser maps a raw proxy link string to a canonical
// descriptor.Descriptor. Dispatch is by scheme prefix; vmess and legacy
// shadowsocks carry a base64 payload, the rest are standard URIs.
package linkparser

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/draco-tlw/rayzor/internal/descriptor"
)

// Parse dispatches a raw link to the matching variant parser and returns a
// canonical descriptor. The original link text is not retained here — callers
// that need the (link, descriptor) pair should wrap the result themselves.
func Parse(link string) (*descriptor.Descriptor, error) {
	link = strings.TrimSpace(link)
	switch {
	case strings.HasPrefix(link, "vmess://"):
		return parseVMess(link)
	case strings.HasPrefix(link, "ss://"):
		return parseShadowsocks(link)
	case strings.HasPrefix(link, "vless://"):
		return parseStandardURI(link, descriptor.VariantVLESS)
	case strings.HasPrefix(link, "trojan://"):
		return parseStandardURI(link, descriptor.VariantTrojan)
	case strings.HasPrefix(link, "tuic://"):
		return parseStandardURI(link, descriptor.VariantTUIC)
	case strings.HasPrefix(link, "hysteria2://"), strings.HasPrefix(link, "hy2://"):
		return parseStandardURI(link, descriptor.VariantHysteria2)
	default:
		return nil, fmt.Errorf("unsupported or malformed link: unrecognized scheme")
	}
}

// decodeBase64Padded decodes URL-safe base64, tolerating missing padding,
// and falls back to standard-alphabet base64 if that fails.
func decodeBase64Padded(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty base64 payload")
	}
	switch len(s) % 4 {
	case 2:
		s += "=="
	case 3:
		s += "="
	}
	decoded, err := base64.URLEncoding.DecodeString(s)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func parseVMess(link string) (*descriptor.Descriptor, error) {
	payload := strings.TrimPrefix(link, "vmess://")
	decoded, err := decodeBase64Padded(payload)
	if err != nil {
		return nil, fmt.Errorf("unsupported or malformed link: vmess base64: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(decoded, &raw); err != nil {
		return nil, fmt.Errorf("unsupported or malformed link: vmess JSON: %w", err)
	}

	d := &descriptor.Descriptor{
		Variant: descriptor.VariantVMess,
		Server:  stringField(raw, "add"),
		Port:    intField(raw, "port"),
		Tag:     stringField(raw, "ps"),
	}
	d.Credential.UUID = stringField(raw, "id")
	d.Credential.AlterID = intFieldDefault(raw, "aid", 0)
	d.Credential.Security = stringFieldDefault(raw, "scy", "auto")

	net := stringFieldDefault(raw, "net", "tcp")
	if net == "raw" {
		net = "tcp"
	}
	if net != "tcp" && net != "kcp" && net != "quic" {
		t := &descriptor.Transport{}
		switch net {
		case "ws":
			t.Type = descriptor.TransportWS
			t.Path = stringFieldDefault(raw, "path", "/")
			t.HostHeader = stringField(raw, "host")
		case "grpc":
			t.Type = descriptor.TransportGRPC
			t.ServiceName = stringField(raw, "path")
		case "httpupgrade":
			t.Type = descriptor.TransportHTTPUpgrade
			t.Path = stringFieldDefault(raw, "path", "/")
			t.HostHeader = stringField(raw, "host")
		default:
			// xhttp, h2, and anything else outside the supported set has no
			// equivalent transport here; reject rather than silently fall
			// back to a bare TCP connection the server does not expect.
			return nil, fmt.Errorf("unsupported or malformed link: unsupported vmess network type %q", net)
		}
		d.Transport = t
	}

	if stringField(raw, "tls") == "tls" {
		sni := stringField(raw, "sni")
		if sni == "" {
			sni = stringField(raw, "host")
		}
		d.TLS = &descriptor.TLS{
			Enabled:    true,
			ServerName: sni,
			Insecure:   true,
		}
	}

	return d, nil
}

func stringField(m map[string]any, key string) string {
	return stringFieldDefault(m, key, "")
}

func stringFieldDefault(m map[string]any, key, def string) string {
	if v, ok := m[key]; ok {
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return def
}

func intField(m map[string]any, key string) int {
	return intFieldDefault(m, key, 0)
}

func intFieldDefault(m map[string]any, key string, def int) int {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return def
}

// parseServerHostPort splits "host:port", stripping IPv6 brackets and using
// the rightmost colon as the host/port boundary so IPv6 literals with
// embedded colons parse correctly.
func parseServerHostPort(s string) (string, int, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("invalid server format: %q", s)
	}
	host, portStr := s[:idx], s[idx+1:]
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid server format: %q", s)
	}
	return host, port, nil
}

func parseShadowsocks(link string) (*descriptor.Descriptor, error) {
	if !strings.HasPrefix(link, "ss://") {
		return nil, fmt.Errorf("unsupported or malformed link: not a shadowsocks link")
	}
	uri := strings.TrimPrefix(link, "ss://")

	tag := "ss-proxy"
	if idx := strings.Index(uri, "#"); idx >= 0 {
		tagRaw := uri[idx+1:]
		uri = uri[:idx]
		if unq, err := url.QueryUnescape(tagRaw); err == nil {
			tag = strings.TrimSpace(unq)
		} else {
			tag = strings.TrimSpace(tagRaw)
		}
	}

	// The plugin query parameter is recognized but never honored downstream.
	if idx := strings.Index(uri, "?"); idx >= 0 {
		uri = uri[:idx]
	}

	var method, password, host string
	var port int

	if idx := strings.LastIndex(uri, "@"); idx >= 0 {
		userinfo, serverStr := uri[:idx], uri[idx+1:]

		decoded, decErr := decodeBase64Padded(userinfo)
		if decErr == nil && strings.Contains(string(decoded), ":") {
			parts := strings.SplitN(string(decoded), ":", 2)
			method, password = parts[0], parts[1]
		} else if strings.Contains(userinfo, ":") {
			parts := strings.SplitN(userinfo, ":", 2)
			method, password = parts[0], parts[1]
		} else {
			method = userinfo
		}

		var err error
		host, port, err = parseServerHostPort(serverStr)
		if err != nil {
			return nil, fmt.Errorf("unsupported or malformed link: %w", err)
		}
	} else {
		decoded, err := decodeBase64Padded(uri)
		if err != nil {
			return nil, fmt.Errorf("unsupported or malformed link: legacy shadowsocks base64: %w", err)
		}
		body := string(decoded)
		idx := strings.LastIndex(body, "@")
		if idx < 0 {
			return nil, fmt.Errorf("unsupported or malformed link: legacy shadowsocks body missing '@'")
		}
		creds, serverStr := body[:idx], body[idx+1:]
		host, port, err = parseServerHostPort(serverStr)
		if err != nil {
			return nil, fmt.Errorf("unsupported or malformed link: %w", err)
		}
		if strings.Contains(creds, ":") {
			parts := strings.SplitN(creds, ":", 2)
			method, password = parts[0], parts[1]
		} else {
			method = creds
		}
	}

	rawMethod := method
	method = strings.ToLower(method)
	if !descriptor.ValidShadowsocksMethods[method] {
		// Decode the method as written: base64 is case-sensitive.
		if decoded, err := decodeBase64Padded(rawMethod); err == nil {
			if candidate := strings.ToLower(string(decoded)); descriptor.ValidShadowsocksMethods[candidate] {
				method = candidate
			}
		}
	}

	d := &descriptor.Descriptor{
		Variant: descriptor.VariantShadowsocks,
		Server:  host,
		Port:    port,
		Tag:     tag,
	}
	d.Credential.Method = method
	d.Credential.Password = password
	return d, nil
}

func parseStandardURI(link string, variant descriptor.Variant) (*descriptor.Descriptor, error) {
	u, err := url.Parse(link)
	if err != nil {
		return nil, fmt.Errorf("unsupported or malformed link: %w", err)
	}
	q := u.Query()

	tag := fmt.Sprintf("%s-proxy", variant)
	if u.Fragment != "" {
		if unq, err := url.QueryUnescape(u.Fragment); err == nil {
			tag = unq
		} else {
			tag = u.Fragment
		}
	}

	port, _ := strconv.Atoi(u.Port())
	d := &descriptor.Descriptor{
		Variant: variant,
		Server:  u.Hostname(),
		Port:    port,
		Tag:     tag,
	}

	switch variant {
	case descriptor.VariantVLESS:
		d.Credential.UUID = u.User.Username()
		d.Credential.Flow = q.Get("flow")
	case descriptor.VariantTrojan:
		d.Credential.Password = u.User.Username()
	case descriptor.VariantTUIC:
		d.Credential.UUID = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			d.Credential.Password = pw
		}
		d.Credential.CongestionControl = q.Get("congestion_control")
		if d.Credential.CongestionControl == "" {
			d.Credential.CongestionControl = "bbr"
		}
	case descriptor.VariantHysteria2:
		pw := u.User.Username()
		if pw == "" {
			pw = "password"
		}
		d.Credential.Password = pw
		if obfsType := q.Get("obfs"); obfsType != "" {
			d.Obfs = &descriptor.Obfs{Type: obfsType, Password: q.Get("obfs-password")}
		}
	}

	security := q.Get("security")
	if security == "tls" || security == "reality" || variant == descriptor.VariantTUIC || variant == descriptor.VariantHysteria2 {
		sni := q.Get("sni")
		if sni == "" {
			sni = u.Hostname()
		}
		tls := &descriptor.TLS{Enabled: true, ServerName: sni, Insecure: true}
		if fp := q.Get("fp"); fp != "" {
			tls.UTLSFP = fp
		}
		if security == "reality" {
			tls.Reality = &descriptor.Reality{PublicKey: q.Get("pbk"), ShortID: q.Get("sid")}
		}
		d.TLS = tls
	}

	netType := q.Get("type")
	switch netType {
	case "ws":
		t := &descriptor.Transport{Type: descriptor.TransportWS, Path: q.Get("path")}
		if t.Path == "" {
			t.Path = "/"
		}
		t.HostHeader = q.Get("host")
		d.Transport = t
	case "grpc":
		d.Transport = &descriptor.Transport{Type: descriptor.TransportGRPC, ServiceName: q.Get("serviceName")}
	case "httpupgrade":
		t := &descriptor.Transport{Type: descriptor.TransportHTTPUpgrade, Path: q.Get("path")}
		if t.Path == "" {
			t.Path = "/"
		}
		t.HostHeader = q.Get("host")
		d.Transport = t
	}

	return d, nil
}
