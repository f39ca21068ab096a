package navigation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus/internal/rbac"
)

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "!!!", "bm90LWpzb24", string(make([]byte, maxEncodedState+1))} {
		assert.Equal(t, State{}, Decode(in), "input %q", in)
	}
}

func TestStateRoundTripThroughQuery(t *testing.T) {
	st := Scoped(rbac.ModuleExamination, map[string]any{"term": "2026-S1"}, "/modules/lms")
	req := httptest.NewRequest(http.MethodGet, "/?"+st.Query(), nil)

	got := FromRequest(req)
	require.NotNil(t, got.ScopedToModule)
	assert.True(t, *got.ScopedToModule)
	assert.Equal(t, "examination", got.SelectedModule)
	assert.Equal(t, "2026-S1", got.ModuleData["term"])
	assert.Equal(t, &Location{Pathname: "/modules/lms"}, got.From)
}

func TestFromRequestHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderName, `{"scopedToModule":true,"selectedModule":"library","from":{"pathname":"https://evil.example"}}`)

	got := FromRequest(req)
	assert.Equal(t, "library", got.SelectedModule)
	assert.Nil(t, got.From, "non-local from is dropped")
	assert.True(t, got.Active())
}

func TestScopeValidatesSelectedModule(t *testing.T) {
	yes, no := true, false

	assert.Equal(t, rbac.Scope{}, State{SelectedModule: "lms"}.Scope(), "scopedToModule missing")
	assert.Equal(t, rbac.Scope{}, State{ScopedToModule: &no, SelectedModule: "lms"}.Scope())
	assert.Equal(t, rbac.Scope{}, State{ScopedToModule: &yes, SelectedModule: "__proto__"}.Scope())

	scope := State{ScopedToModule: &yes, SelectedModule: "lms", ModuleData: map[string]any{"a": "b"}}.Scope()
	assert.True(t, scope.ScopedToModule)
	assert.Equal(t, "lms", scope.SelectedModule)
	assert.Equal(t, map[string]any{"a": "b"}, scope.Payload)
}

func TestSafeNext(t *testing.T) {
	assert.Equal(t, "/modules/lms?x=1", SafeNext("/modules/lms?x=1", "/"))
	assert.Equal(t, "/", SafeNext("//evil.example", "/"))
	assert.Equal(t, "/", SafeNext("/\\evil.example", "/"))
	assert.Equal(t, "/", SafeNext("https://evil.example", "/"))
	assert.Equal(t, "/", SafeNext("", "/"))
}

func TestEmptyStateHasNoQuery(t *testing.T) {
	assert.Empty(t, State{}.Query())
	assert.Equal(t, "/", Redirect{Path: "/"}.URL())
}
