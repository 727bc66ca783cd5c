// Package defaults provides embedded default assets (config, emoji table, bundled themes).
package defaults

import "embed"

//go:embed default_config.toml
var DefaultConfigTOML []byte

//go:embed emoji.json
var EmojiJSON []byte

// Themes holds the bundled theme files under themes/.
//
//go:embed themes/*.toml
var Themes embed.FS
