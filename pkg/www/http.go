package www

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/tallycam/tallycam/pkg/log"
)

// RunProtected runs 'handler' inside a panic handler that recognizes our special errors,
// and sends the appropriate HTTP response if a panic does occur.
func RunProtected(log log.Log, w http.ResponseWriter, r *http.Request, handler func()) {
	defer func() {
		if rec := recover(); rec != nil {
			if hErr, ok := rec.(HTTPError); ok {
				log.Infof("Failed request %v: %v %v", r.URL.Path, hErr.Code, hErr.Message)
				SendError(w, hErr.Message, hErr.Code)
			} else if hErr, ok := rec.(*HTTPError); ok {
				log.Infof("Failed request %v: %v %v", r.URL.Path, hErr.Code, hErr.Message)
				SendError(w, hErr.Message, hErr.Code)
			} else if err, ok := rec.(runtime.Error); ok {
				// Show stack trace on runtime error
				log.Errorf("Runtime panic error %v: %v", r.URL.Path, err)
				log.Errorf("Stack Trace: %v", string(debug.Stack()))
				SendError(w, err.Error(), http.StatusInternalServerError)
			} else if err, ok := rec.(error); ok {
				// No stack trace on generic error
				log.Errorf("Panic error %v: %v", r.URL.Path, err)
				SendError(w, err.Error(), http.StatusInternalServerError)
			} else if err, ok := rec.(string); ok {
				log.Errorf("Panic string %v: %v", r.URL.Path, err)
				SendError(w, err, http.StatusInternalServerError)
			} else {
				log.Errorf("Unrecognized panic %v: %v", r.URL.Path, rec)
				SendError(w, "Unrecognized panic", http.StatusInternalServerError)
			}
		}
	}()

	handler()
}

// Handle adds a protected HTTP route to router (ie handle will run inside RunProtected, so you get a panic handler).
func Handle(log log.Log, router *httprouter.Router, method, path string, handle httprouter.Handle) {
	wrapper := func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		RunProtected(log, w, r, func() { handle(w, r, p) })
	}
	router.Handle(method, path, wrapper)
}

// ParseID parses a 64-bit integer, and returns zero on failure.
func ParseID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}

// Returns the named query value (or an empty string)
func QueryValue(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// Returns the named query value, or panics if the item is empty or missing
func RequiredQueryValue(r *http.Request, key string) string {
	v := QueryValue(r, key)
	if v == "" {
		PanicBadRequestf("Must specify %v", key)
	}
	return v
}

// Returns the named query value as an int64, or panics if the item is empty, missing, or not parseable as an integer
func RequiredQueryInt64(r *http.Request, key string) int64 {
	v := RequiredQueryValue(r, key)
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		PanicBadRequestf("Must specify an integer for %v", key)
	}
	return i
}

// Returns the named query value as an int, or panics if the item is empty, missing, or not parseable as an integer
func RequiredQueryInt(r *http.Request, key string) int {
	return int(RequiredQueryInt64(r, key))
}

// Returns the named query value as an int64, or zero if the item is missing or not parseable as an integer
func QueryInt64(r *http.Request, key string) int64 {
	i, _ := strconv.ParseInt(r.FormValue(key), 10, 64)
	return i
}

// Returns the named query value as an int, or zero if the item is missing or not parseable as an integer
func QueryInt(r *http.Request, key string) int {
	return int(QueryInt64(r, key))
}

// ReadJSON reads the body of the request, and unmarshals it into 'obj'.
func ReadJSON(w http.ResponseWriter, r *http.Request, obj interface{}, maxBodyBytes int64) {
	if r.Body == nil {
		Panic(http.StatusBadRequest, "ReadJSON failed: Request body is empty")
	}
	reader := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	if err := json.NewDecoder(reader).Decode(obj); err != nil {
		Panic(http.StatusBadRequest, "ReadJSON failed: Failed to decode JSON - "+err.Error())
	}
}

// Set cache headers instructing the client never to cache
func CacheNever(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "max-age=0")
}

// SendError is identical to the standard library http.Error(), except that we don't append a \n to the message body
func SendError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	w.Write([]byte(message))
}

// SendJSON encodes 'obj' to JSON, and sends it as an HTTP application/json response.
func SendJSON(w http.ResponseWriter, obj interface{}) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(obj)
	Check(err)
	w.Write(b)
}

// SendJSONID sends the ID as {"id":<value>}
func SendJSONID(w http.ResponseWriter, id int64) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(fmt.Sprintf(`{"id":%v}`, id)))
}

// SendText sends text as an HTTP text/plain response
func SendText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(text))
}

// SendOK sends "OK" as a text/plain response.
func SendOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("OK"))
}
