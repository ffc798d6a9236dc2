package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the sync workers for calls to the football-data
// provider and the profile service. Both endpoints answer well under 30s;
// anything slower should fail and retry on the next tick.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
