package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/campus/internal/navigation"
	"github.com/odyssey-erp/campus/internal/notify"
	"github.com/odyssey-erp/campus/internal/rbac"
	"github.com/odyssey-erp/campus/internal/session"
	"github.com/odyssey-erp/campus/internal/shared"
)

type portalFixture struct {
	router  http.Handler
	storage session.Storage
}

func newPortalFixture(p *rbac.Principal) portalFixture {
	storage := session.NewMemoryBackend().Storage("scope-1")
	h := NewHandler(HandlerConfig{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithScope(req.Context(), &shared.RequestScope{ID: "scope-1", Storage: storage})
			if p != nil {
				ctx = rbac.ContextWithPrincipal(ctx, p)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	h.MountRoutes(r)
	return portalFixture{router: r, storage: storage}
}

func (f portalFixture) do(method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Accept", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestDashboardAnonymousRedirects(t *testing.T) {
	rr := newPortalFixture(nil).do(http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth/login?next=%2F", rr.Header().Get("Location"))
}

func TestDashboardListsRoleModules(t *testing.T) {
	f := newPortalFixture(&rbac.Principal{ID: "stu-1", Role: rbac.RoleStudent})

	rr := f.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	data := decode[dashboardData](t, rr)
	assert.Empty(t, data.Scoped)
	var ids []rbac.ModuleID
	for _, tile := range data.Modules {
		ids = append(ids, tile.Module)
	}
	assert.Equal(t, []rbac.ModuleID{rbac.ModuleLMS, rbac.ModuleExamination, rbac.ModuleLibrary, rbac.ModuleHostel}, ids)
	assert.Equal(t, "LMS", data.Modules[0].Label)
	assert.Equal(t, "/modules/lms", data.Modules[0].Link)
}

func TestDashboardScopedView(t *testing.T) {
	f := newPortalFixture(&rbac.Principal{ID: "stu-1", Role: rbac.RoleStudent})

	rr := f.do(http.MethodGet, "/", map[string]string{
		navigation.HeaderName: `{"scopedToModule":true,"selectedModule":"library","moduleData":{"shelf":"B2"}}`,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	data := decode[dashboardData](t, rr)
	assert.Equal(t, rbac.ModuleLibrary, data.Scoped)
	require.Len(t, data.Modules, 1)

	link, err := url.Parse(data.Modules[0].Link)
	require.NoError(t, err)
	assert.Equal(t, "/modules/library", link.Path)
	st := navigation.Decode(link.Query().Get(navigation.QueryParam))
	assert.Equal(t, "library", st.SelectedModule)
	assert.Equal(t, "B2", st.ModuleData["shelf"])

	rr = f.do(http.MethodGet, "/", map[string]string{
		navigation.HeaderName: `{"scopedToModule":true,"selectedModule":"payroll"}`,
	})
	data = decode[dashboardData](t, rr)
	assert.Empty(t, data.Scoped, "scope to a module the role lacks is ignored")
	assert.Len(t, data.Modules, 4)
}

func TestModuleAndResourceViews(t *testing.T) {
	f := newPortalFixture(&rbac.Principal{ID: "lib-1", Role: rbac.RoleLibrarian})

	rr := f.do(http.MethodGet, "/modules/library", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	mod := decode[moduleData](t, rr)
	assert.Equal(t, []resourceRow{{Resource: "books", Label: "Books"}}, mod.Resources)

	rr = f.do(http.MethodGet, "/modules/library/resources/books", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[resourceView](t, rr)
	assert.Equal(t, []rbac.Operation{rbac.OpCreate, rbac.OpRead, rbac.OpUpdate, rbac.OpDelete}, res.Operations)

	rr = f.do(http.MethodGet, "/modules/library/resources/assets", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code, "readable resource outside the module")

	rr = f.do(http.MethodGet, "/modules/finance", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestResourceActionJSON(t *testing.T) {
	f := newPortalFixture(&rbac.Principal{ID: "lib-1", Role: rbac.RoleLibrarian})

	rr := f.do(http.MethodPost, "/modules/library/resources/books/create", nil)
	require.Equal(t, http.StatusAccepted, rr.Code)
	body := decode[map[string]string](t, rr)
	assert.Equal(t, "Request to create books submitted.", body["message"])

	rr = f.do(http.MethodPost, "/modules/library/resources/books/read", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(http.MethodPost, "/modules/library/resources/assets/update", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestResourceActionFlashesAndRedirects(t *testing.T) {
	f := newPortalFixture(&rbac.Principal{ID: "lib-1", Role: rbac.RoleLibrarian})

	req := httptest.NewRequest(http.MethodPost, "/modules/library/resources/books/delete", strings.NewReader(""))
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/modules/library", rr.Header().Get("Location"))
	flash := notify.NewFlashSink(f.storage, nil).Pop(context.Background())
	require.NotNil(t, flash)
	assert.Equal(t, notify.KindSuccess, flash.Kind)
	assert.Equal(t, "Request to delete books submitted.", flash.Message)
}
