package tokenizer

import (
	"net/http"
)

// LoggingTransport traces tokenizer artifact requests through DebugLog
// without touching the response.
type LoggingTransport struct {
	Transport http.RoundTripper
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if DebugLog != nil {
		DebugLog("requesting url: %s", req.URL.String())
	}

	resp, err := t.Transport.RoundTrip(req)

	if DebugLog != nil {
		if err != nil {
			DebugLog("request failed for %s: %v", req.URL.String(), err)
		} else {
			DebugLog("response for %s: status code %d", req.URL.String(), resp.StatusCode)
		}
	}

	return resp, err
}
