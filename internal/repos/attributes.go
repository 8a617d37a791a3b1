package repos

import (
	"strings"
)

// Attribute keys
const (
	AttrType = "type"

	AttrDirectory     = "directory"
	AttrVolatile      = "volatile"
	AttrInterface     = "interface"
	AttrPort          = "port"
	AttrServeUsername = "serve_username"
	AttrServePassword = "serve_password"

	AttrDownloadURL = "download_url"
	AttrUploadURL   = "upload_url"
	AttrUsername    = "username"
	AttrPassword    = "password"

	AttrSigningKey        = "signing_key"
	AttrSigningPassphrase = "signing_passphrase"
)

// Values of AttrType
const (
	TypeDirectory = "directory"
	TypeHTTP      = "http"
)

// Defaults of optional attributes
const (
	DefaultInterface = "0.0.0.0"
	DefaultPort      = "8080"
)

// Attributes is the attribute map of one repository definition
type Attributes map[string]string

// Get returns the value of key; ok is false when key is absent or empty
func (a Attributes) Get(key string) (value string, ok bool) {
	value, ok = a[key]
	return value, ok && value != ""
}

// GetDefault returns the value of key or def when it is not set
func (a Attributes) GetDefault(key, def string) string {
	if value, ok := a.Get(key); ok {
		return value
	}
	return def
}

// Bool interprets key as a boolean-ish flag: 1, true, yes and on are true
func (a Attributes) Bool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(a[key])) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func isSecret(key string) bool {
	return key == AttrPassword || key == AttrServePassword || key == AttrSigningPassphrase
}
