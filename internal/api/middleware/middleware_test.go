package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"

	"shopcsv/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New("error")

	router := gin.New()
	router.Use(Logger(log), Recovery(log), CORS("https://admin.shopify.com"))
	router.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/panic", func(c *gin.Context) { panic("boom") })
	return router
}

func TestCORS_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
	req.Header.Set("Origin", "https://admin.shopify.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()

	newRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.shopify.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_SimpleRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Origin", "https://admin.shopify.com")
	w := httptest.NewRecorder()

	newRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://admin.shopify.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Disposition", w.Header().Get("Access-Control-Expose-Headers"))
}

func TestRecovery(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRecovery_LogsRequestFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(logger.FromZap(zap.New(core))))
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, 1, recorded.Len())
	entry := recorded.All()[0]
	assert.Equal(t, "Panic recovered: boom", entry.Message)
	assert.Equal(t, "/boom", entry.ContextMap()["path"])
	assert.Equal(t, http.MethodGet, entry.ContextMap()["method"])
}

func TestRecovery_ClientGoneIsQuiet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(Recovery(logger.FromZap(zap.New(core))))
	router.GET("/gone", func(c *gin.Context) {
		panic(&net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.EPIPE)})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gone", nil))

	assert.Zero(t, recorded.Len())
}
