package controller

// Package controller implements the client's session logic independently
// of any toolkit. It owns the explicit session state and the display
// snapshot, forwards user actions to the analysis server, and applies
// push-channel messages by field presence. Views render what it reports.
