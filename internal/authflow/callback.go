package authflow

import (
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

type callbackResult struct {
	token *oauth2.Token
	err   error
}

// callbackHandler serves the OAuth2 redirect. It validates the state
// parameter, exchanges the authorization code for a token, and delivers
// exactly one result over its channel. Repeat requests are rejected.
type callbackHandler struct {
	config     *oauth2.Config
	state      string
	resultChan chan callbackResult
	once       sync.Once
	mu         sync.Mutex
	handled    bool
}

func newCallbackHandler(config *oauth2.Config, state string) *callbackHandler {
	return &callbackHandler{
		config:     config,
		state:      state,
		resultChan: make(chan callbackResult, 1),
	}
}

func (h *callbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.handled {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.handled = true
	h.mu.Unlock()

	if state := r.URL.Query().Get("state"); state != h.state {
		h.send(callbackResult{err: fmt.Errorf("state parameter mismatch")})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		h.send(callbackResult{err: fmt.Errorf("authorization denied: %s %s", errParam, errDesc)})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.send(callbackResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(callbackResult{token: token})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

func (h *callbackHandler) send(result callbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// result returns the channel carrying the single flow outcome.
func (h *callbackHandler) result() <-chan callbackResult {
	return h.resultChan
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>Authorization Complete</title>
    <style>
        body { font-family: sans-serif; display: flex; align-items: center;
               justify-content: center; height: 100vh; margin: 0; background: #f5f5f5; }
        .card { text-align: center; background: white; padding: 2rem;
                border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>Authorization complete</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
