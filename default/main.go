// Package defaults provides embedded default assets (daemon config and stub template).
package defaults

import _ "embed"

//go:embed default_config.json
var DefaultConfigJSON []byte

//go:embed default_stub.tmpl
var DefaultStubTemplate string
