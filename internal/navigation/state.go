// Package navigation decides what a principal may reach on each navigation
// attempt and carries the transient module scope between requests.
package navigation

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/odyssey-erp/campus/internal/rbac"
)

const (
	// QueryParam carries the base64url encoded state on redirects and links.
	QueryParam = "nav"
	// HeaderName carries the raw JSON state for API clients.
	HeaderName = "X-Navigation-State"

	maxEncodedState = 4096
)

// Location is the path a navigation came from.
type Location struct {
	Pathname string `json:"pathname"`
}

// State is the navigation payload attached to a transition. Every field is
// untrusted client input.
type State struct {
	ScopedToModule *bool          `json:"scopedToModule,omitempty"`
	SelectedModule string         `json:"selectedModule,omitempty"`
	ModuleData     map[string]any `json:"moduleData,omitempty"`
	From           *Location      `json:"from,omitempty"`
}

// Scoped builds the state for a module-scoped transition.
func Scoped(module rbac.ModuleID, data map[string]any, from string) State {
	scoped := true
	st := State{ScopedToModule: &scoped, SelectedModule: string(module), ModuleData: data}
	if from != "" {
		st.From = &Location{Pathname: from}
	}
	return st
}

// Scope converts the state into an evaluator scope. An unknown selected module
// yields an inactive scope.
func (s State) Scope() rbac.Scope {
	if s.ScopedToModule == nil || !*s.ScopedToModule {
		return rbac.Scope{}
	}
	if !rbac.IsValidModuleID(s.SelectedModule) {
		return rbac.Scope{}
	}
	return rbac.Scope{
		ScopedToModule: true,
		SelectedModule: s.SelectedModule,
		Payload:        s.ModuleData,
	}
}

// Active reports whether the state restricts navigation to a known module.
func (s State) Active() bool {
	return s.Scope().ScopedToModule
}

// Encode returns the query-safe form of s.
func (s State) Encode() string {
	raw, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Query returns "nav=<encoded>" ready to append to a URL, or "" for an empty
// state.
func (s State) Query() string {
	if s.ScopedToModule == nil && s.SelectedModule == "" && len(s.ModuleData) == 0 && s.From == nil {
		return ""
	}
	return url.Values{QueryParam: {s.Encode()}}.Encode()
}

// Decode parses an encoded state. Malformed input yields an empty state.
func Decode(encoded string) State {
	if encoded == "" || len(encoded) > maxEncodedState {
		return State{}
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return State{}
	}
	return decodeJSON(raw)
}

// FromRequest reads the state from the query parameter, falling back to the
// header.
func FromRequest(r *http.Request) State {
	if encoded := r.URL.Query().Get(QueryParam); encoded != "" {
		return Decode(encoded)
	}
	if header := r.Header.Get(HeaderName); header != "" && len(header) <= maxEncodedState {
		return decodeJSON([]byte(header))
	}
	return State{}
}

func decodeJSON(raw []byte) State {
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}
	}
	if st.From != nil && !isLocalPath(st.From.Pathname) {
		st.From = nil
	}
	return st
}

// isLocalPath rejects absolute and protocol-relative URLs.
func isLocalPath(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return false
	}
	u, err := url.Parse(p)
	return err == nil && u.Scheme == "" && u.Host == ""
}

// SafeNext returns p when it is a local path and fallback otherwise.
func SafeNext(p, fallback string) string {
	if isLocalPath(p) {
		return p
	}
	return fallback
}
