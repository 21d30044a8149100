// Package ir provides the domain types shared by every prodreg package.
//
// This package contains type definitions, the error taxonomy and the
// canonical encodings only. All other internal packages import ir; ir
// imports nothing internal.
//
// Key design constraints:
//   - ProductRecord fields are write-once; there is no update type
//   - Notification IDs are content-addressed (SHA-256 over RFC 8785 JSON)
//   - All JSON tags use snake_case
//   - Hashes travel as 0x-prefixed hex
package ir
