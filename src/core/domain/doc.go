// Package domain contains the core domain model for the application.
//
// This package defines:
//   - Entities: sports leagues served by the API
//   - Domain Errors: not found, invalid input, conflict, unavailable
//
// Rules for this package:
//   - No external dependencies except the standard library
//   - No infrastructure concerns (database, HTTP, etc.)
package domain
