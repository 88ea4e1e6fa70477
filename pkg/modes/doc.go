// Package modes loads custom agent mode definitions from a JSON file.
//
// The file has the shape {"customModes": [{"slug": "...", ...}, ...]} and is
// read lazily on first access, then served from memory until Invalidate or
// Reload is called (or Watch observes a change). A missing or malformed file
// yields an empty set rather than an error at lookup time.
package modes
