package logger

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Caller identifies where a record was logged from.
type Caller struct {
	// Module is the last three path elements of the source file without
	// extension, joined with dots: src/infra/db/scope.go → infra.db.scope.
	Module   string
	Function string
	Line     int
}

// CallerOf resolves the program counter captured by slog.
func CallerOf(pc uintptr) Caller {
	if pc == 0 {
		return Caller{}
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return Caller{
		Module:   moduleName(frame.File),
		Function: shortFunction(frame.Function),
		Line:     frame.Line,
	}
}

func moduleName(file string) string {
	if file == "" {
		return ""
	}
	file = strings.TrimSuffix(filepath.ToSlash(file), filepath.Ext(file))
	parts := strings.Split(strings.Trim(file, "/"), "/")
	if len(parts) > 3 {
		parts = parts[len(parts)-3:]
	}
	return strings.Join(parts, ".")
}

// shortFunction strips the import path and package name:
// statapi/src/infra/db.(*Scope).Conn → (*Scope).Conn
func shortFunction(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	if i := strings.Index(fn, "."); i >= 0 {
		fn = fn[i+1:]
	}
	return fn
}
