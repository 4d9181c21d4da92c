package platform

// Package platform contains OS integration: filesystem helpers for
// imported and uploaded videos, safe file naming, and revealing files in
// the system file manager.
