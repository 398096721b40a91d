package server

import (
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/sirupsen/logrus"
)

type loggedResponseData struct {
	size int
}

type loggingResponseWriter struct {
	http.ResponseWriter
	responseData *loggedResponseData
}

func (r *loggingResponseWriter) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.responseData.size += size
	return size, err
}

func getFunctionName(temp interface{}) string {
	strs := strings.Split((runtime.FuncForPC(reflect.ValueOf(temp).Pointer()).Name()), ".")
	return strs[len(strs)-1]
}

func byteCountToString(b int) string {
	const unit = 1000
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "kMG"[exp])
}

type Middleware func(http.Handler) http.Handler

// mergeMiddlewares creates a new middleware that runs the given middlewares in reverse order. The first middleware
// passed will be the "outermost" one
func mergeMiddlewares(middlewares ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}

// withLogging will log every request made to the wrapped endpoint. It will also log
// panics, but won't stop them.
func withLogging(s *statsd.Client, log *logrus.Logger) Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			var responseData loggedResponseData
			lrw := loggingResponseWriter{
				ResponseWriter: rw,
				responseData:   &responseData,
			}
			start := time.Now()

			defer func() {
				// log panics
				if err := recover(); err != nil {
					duration := time.Since(start)
					log.WithFields(logrus.Fields{
						"remote":   getRemoteAddr(r),
						"method":   r.Method,
						"uri":      r.RequestURI,
						"duration": duration.String(),
						"size":     byteCountToString(responseData.size),
					}).Errorf("request panicked: %v", err)

					// keep panicking
					panic(err)
				}
			}()

			h.ServeHTTP(&lrw, r)

			duration := time.Since(start)
			log.WithFields(logrus.Fields{
				"remote":   getRemoteAddr(r),
				"method":   r.Method,
				"uri":      r.RequestURI,
				"duration": duration.String(),
				"size":     byteCountToString(responseData.size),
			}).Info("handled request")
			if s != nil {
				s.Distribution("runtime_tracker.request_duration", float64(duration.Microseconds())/1_000, []string{"handler:" + getFunctionName(h)}, 1.0)
				s.Incr("runtime_tracker.request", []string{"handler:" + getFunctionName(h)}, 1.0)
			}
		})
	}
}

// withPanicGuard is the last defence from a panic. it will log them and return a 500 error
// to the client and prevent the http server from breaking
func withPanicGuard(log *logrus.Logger) Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if br, ok := err.(badRequest); ok {
						log.Warnf("bad request: %s", br.message)
						http.Error(rw, br.message, http.StatusBadRequest)
						return
					}
					log.Errorf("panic: %v", err)
					rw.WriteHeader(http.StatusInternalServerError)
				}
			}()
			h.ServeHTTP(rw, r)
		})
	}
}
