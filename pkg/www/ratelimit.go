package www

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
	"github.com/julienschmidt/httprouter"
	"github.com/tallycam/tallycam/pkg/log"
)

// HandleRateLimited is like Handle, but the route is guarded by a per-IP rate
// limiter. We use this on endpoints that clients can hammer (eg alert creation).
func HandleRateLimited(log log.Log, router *httprouter.Router, method, path string, requestLimit int, windowLength time.Duration, handle httprouter.Handle) {
	limiter := httprate.Limit(requestLimit, windowLength,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			SendError(w, "Too many requests", http.StatusTooManyRequests)
		}),
	)
	router.Handle(method, path, func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			RunProtected(log, w, r, func() { handle(w, r, p) })
		})
		limiter(inner).ServeHTTP(w, r)
	})
}
