package models

// Config contains the settings of one pyrene process
type Config struct {
	// StorePath is the attribute store holding repository definitions
	StorePath string
	// PipConf is the file written by write_pip_conf_for and use
	PipConf string

	// External tools
	Pip   string // installer used to download packages
	Twine string // publisher used to upload to HTTP repositories

	// Logging
	Verbose bool
	LogFile string // rotated log file; empty logs to stderr
}
