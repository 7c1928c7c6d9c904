package descriptor

// ValidShadowsocksMethods is the closed set of cipher names the downstream
// proxy core is willing to run. Anything else is rejected rather than
// forwarded, since an unsupported method crashes the core instead of failing
// the single outbound.
var ValidShadowsocksMethods = map[string]bool{
	"aes-128-gcm":             true,
	"aes-192-gcm":             true,
	"aes-256-gcm":             true,
	"chacha20-ietf-poly1305":  true,
	"xchacha20-ietf-poly1305": true,
	"2022-blake3-aes-128-gcm": true,
	"2022-blake3-aes-256-gcm": true,
	"aes-128-ctr":             true,
	"aes-192-ctr":             true,
	"aes-256-ctr":             true,
	"aes-128-cfb":             true,
	"aes-192-cfb":             true,
	"aes-256-cfb":             true,
	"rc4-md5":                 true,
	"chacha20-ietf":           true,
	"xchacha20":               true,
	"chacha20":                true,
}
