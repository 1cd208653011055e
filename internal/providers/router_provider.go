package providers

import (
	"net/http"
	"strings"
	"wearsync/internal/structures"
)

type RouterProviderInterface interface {
	Get(url string, handler http.Handler)
	Post(url string, handler http.Handler)
	GetRoutes() []structures.Route
	Paths() []string
}

type RouterProvider struct {
	routes []structures.Route
}

func (rp *RouterProvider) Get(url string, handler http.Handler) {
	rp.add(url, handler, http.MethodGet)
}

func (rp *RouterProvider) Post(url string, handler http.Handler) {
	rp.add(url, handler, http.MethodPost)
}

func (rp *RouterProvider) add(url string, handler http.Handler, methods ...string) {
	rp.routes = append(rp.routes, structures.Route{
		Url:     url,
		Handler: methodHandler(handler, methods...),
	})
}

func (rp *RouterProvider) GetRoutes() []structures.Route {
	return rp.routes
}

// Paths lists every registered url, used to bound metric label values.
func (rp *RouterProvider) Paths() []string {
	paths := make([]string, 0, len(rp.routes))
	for _, r := range rp.routes {
		paths = append(paths, r.Url)
	}
	return paths
}

func NewRouterProvider() RouterProviderInterface {
	return &RouterProvider{}
}

func methodHandler(handler http.Handler, methods ...string) http.Handler {
	allow := strings.Join(methods, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, m := range methods {
			if r.Method == m {
				handler.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Allow", allow)
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})
}
