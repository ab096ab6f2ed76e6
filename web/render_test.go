package web_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangdungcntt/gelly"
	"github.com/dangdungcntt/gelly/web"
)

func newRenderEngine(pages map[string]string) *gelly.Engine {
	m := fstest.MapFS{}
	for name, content := range pages {
		m[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return gelly.NewFS(m)
}

func TestHTMLRenderInGin(t *testing.T) {
	engine := newRenderEngine(map[string]string{
		"home.gelly": `<h1>hi ${name}</h1>`,
	})

	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.HTMLRender = web.NewHTMLRender(engine)
	g.GET("/", func(c *gin.Context) {
		scope := gelly.NewScope(nil)
		scope.Set("name", gelly.String("sam"))
		c.HTML(http.StatusOK, "home", scope)
	})

	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `<h1>hi sam</h1>`, rec.Body.String())
}

func TestRenderFailureCommitsNothing(t *testing.T) {
	engine := newRenderEngine(nil) // no templates

	rec := httptest.NewRecorder()
	r := web.NewHTMLRender(engine).Instance("missing", nil)
	err := r.Render(rec)
	require.Error(t, err)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestNewViewDefaults(t *testing.T) {
	v := web.NewView("home", gelly.NewScope(nil))
	assert.Equal(t, "home", v.Name())
	assert.Equal(t, http.StatusOK, v.Status())

	v = web.NewView("err", nil, http.StatusInternalServerError)
	assert.Equal(t, http.StatusInternalServerError, v.Status())
}
