package models

// Package represents a Python distribution file with its core metadata
type Package struct {
	// Core metadata
	Name         string
	Version      string
	Summary      string
	Homepage     string
	License      string
	Dependencies []string

	// File information
	Filename  string
	Size      int64
	MD5Sum    string
	SHA256Sum string

	// Signature is the path of a detached .asc signature, if any
	Signature string
}
