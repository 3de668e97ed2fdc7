//go:build cgo

package main

// The cgo SQLite driver registers as "sqlite3", next to the pure Go "sqlite".
import _ "github.com/mattn/go-sqlite3"
