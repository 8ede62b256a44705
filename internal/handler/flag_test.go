package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func flagTestRouter(store *fakeRecordStore, flag string) *gin.Engine {
	h := NewFlagHandler(store, flag)

	router := gin.New()
	router.GET("/flag", h.Submit)
	router.POST("/flag", h.Submit)
	return router
}

func storedKeys() *fakeRecordStore {
	return &fakeRecordStore{keys: []string{"key-a", "key-b", "key-c"}}
}

func TestFlagAcceptsKeysArray(t *testing.T) {
	router := flagTestRouter(storedKeys(), "FLAG{ok}")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/flag", strings.NewReader(`{"keys":["key-b","key-a","key-c"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"flag":"FLAG{ok}"}`, w.Body.String())
}

func TestFlagAcceptsNamedJSONFields(t *testing.T) {
	router := flagTestRouter(storedKeys(), "FLAG{ok}")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/flag", strings.NewReader(`{"k1":"key-a","k2":"key-b","k3":"key-c"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"flag":"FLAG{ok}"}`, w.Body.String())
}

func TestFlagAcceptsFormFields(t *testing.T) {
	router := flagTestRouter(storedKeys(), "FLAG{ok}")

	form := url.Values{"k1": {"key-c"}, "k2": {"key-a"}, "k3": {"key-b"}}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/flag", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestFlagAcceptsQueryParamsOnGET(t *testing.T) {
	router := flagTestRouter(storedKeys(), "FLAG{ok}")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/flag?k1=key-a&k2=key-b&k3=key-c", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestFlagNeedsThreeKeys(t *testing.T) {
	router := flagTestRouter(storedKeys(), "FLAG{ok}")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/flag", strings.NewReader(`{"keys":["key-a","key-b"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"need_three_keys"}`, w.Body.String())
}

func TestFlagMismatch(t *testing.T) {
	router := flagTestRouter(storedKeys(), "FLAG{ok}")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/flag", strings.NewReader(`{"keys":["key-a","key-b","wrong"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"mismatch"}`, w.Body.String())
}

func TestFlagRejectsDuplicatedKey(t *testing.T) {
	router := flagTestRouter(storedKeys(), "FLAG{ok}")

	// Three submissions but only two distinct stored keys covered.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/flag", strings.NewReader(`{"keys":["key-a","key-a","key-b"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"mismatch"}`, w.Body.String())
}

func TestFlagServerMisconfigured(t *testing.T) {
	cases := map[string]struct {
		store *fakeRecordStore
		flag  string
	}{
		"query error":     {&fakeRecordStore{keysErr: errors.New("down")}, "FLAG{ok}"},
		"wrong key count": {&fakeRecordStore{keys: []string{"a", "b"}}, "FLAG{ok}"},
		"no flag":         {storedKeys(), ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			router := flagTestRouter(tc.store, tc.flag)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/flag", strings.NewReader(`{"keys":["a","b","c"]}`))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusInternalServerError, w.Code)
			require.JSONEq(t, `{"error":"server_misconfigured"}`, w.Body.String())
		})
	}
}
