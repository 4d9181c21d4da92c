package model

// Package model defines the data shared by the controller and the views:
// the session state enum, the push-message schema streamed by the analysis
// server, the display snapshot rendered by views, and media job records.
