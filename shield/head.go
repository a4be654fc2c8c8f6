package shield

import "net/http"

// HeadToGet serves HEAD as GET, so uptime checks on /health and existence
// checks on a stored scrape get the GET route's status and headers. The
// scrape endpoint stays POST-only. net/http drops the body of a HEAD reply.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			GetLogger(r.Context()).Debug("shield: head as get", "path", r.URL.Path)
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
