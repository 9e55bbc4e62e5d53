package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestBodyLimit はBodyLimitミドルウェアを検証する。
func TestBodyLimit(t *testing.T) {
	t.Parallel()

	newRouter := func(limit int64, readErr *error) *gin.Engine {
		router := gin.New()
		router.Use(BodyLimit(limit))
		router.POST("/test", func(c *gin.Context) {
			_, *readErr = io.ReadAll(c.Request.Body)
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("上限以内のボディは読み取れること", func(t *testing.T) {
		t.Parallel()

		var readErr error
		router := newRouter(16, &readErr)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"a":1}`)))

		if readErr != nil {
			t.Errorf("読み取りでエラーが発生: %v", readErr)
		}
	})

	t.Run("上限を超えたボディはMaxBytesErrorになること", func(t *testing.T) {
		t.Parallel()

		var readErr error
		router := newRouter(4, &readErr)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"a":12345}`)))

		var maxErr *http.MaxBytesError
		if !errors.As(readErr, &maxErr) {
			t.Errorf("MaxBytesErrorが返るべきだが %v が返った", readErr)
		}
	})
}
