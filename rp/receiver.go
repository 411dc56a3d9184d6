package rp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// CallbackResult is what the browser delivered to the redirect URI.
type CallbackResult struct {
	Code  string
	State string
}

// CodeReceiver listens on a local address for the authorization redirect and
// resolves exactly once, with the code or with the error the server sent.
type CodeReceiver struct {
	listener net.Listener
	server   *http.Server
	path     string

	once   sync.Once
	result chan callbackOutcome
}

type callbackOutcome struct {
	result CallbackResult
	err    error
}

// NewCodeReceiver starts listening on addr (for example "127.0.0.1:0") and
// serves the redirect at path.
func NewCodeReceiver(addr, path string) (*CodeReceiver, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "[rp.NewCodeReceiver] listen %s", addr)
	}
	r := &CodeReceiver{
		listener: listener,
		path:     path,
		result:   make(chan callbackOutcome, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, r.handle)
	r.server = &http.Server{Handler: mux}
	go func() {
		if err := r.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("code receiver stopped")
			r.deliver(callbackOutcome{err: err})
		}
	}()
	return r, nil
}

// RedirectURL is the URL to register and send as redirect_uri.
func (r *CodeReceiver) RedirectURL() string {
	return fmt.Sprintf("http://%s%s", r.listener.Addr().String(), r.path)
}

func (r *CodeReceiver) handle(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	if e := q.Get("error"); e != "" {
		r.deliver(callbackOutcome{err: &Error{Status: http.StatusBadRequest, Code: e, Description: q.Get("error_description")}})
		http.Error(w, "Login failed. You can close this window.", http.StatusBadRequest)
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}
	r.deliver(callbackOutcome{result: CallbackResult{Code: code, State: q.Get("state")}})
	_, _ = fmt.Fprintln(w, "Login complete. You can close this window.")
}

func (r *CodeReceiver) deliver(o callbackOutcome) {
	r.once.Do(func() {
		r.result <- o
	})
}

// Wait blocks until the redirect arrives or ctx ends.
func (r *CodeReceiver) Wait(ctx context.Context) (CallbackResult, error) {
	select {
	case o := <-r.result:
		return o.result, o.err
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	}
}

func (r *CodeReceiver) Close() error {
	return r.server.Close()
}
