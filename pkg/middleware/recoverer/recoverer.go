package recoverer

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"
	"github.com/vadimbarashkov/link-shortener/pkg/middleware"
	"github.com/vadimbarashkov/link-shortener/pkg/response"
)

type notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// New recovers from panics in next, logs them and renders a JSON server error.
// When notifier is not nil the panic is also reported through it; a failed
// report is logged and the response is still written.
// http.ErrAbortHandler is re-panicked so the server can abort the response.
func New(logger *slog.Logger, notifier notifier) middleware.Middleware {
	const op = "middleware.recoverer.New"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				stack := string(debug.Stack())

				logger.Error(
					"something went wrong, panic occurred",
					slog.Group(op,
						slog.Any("err", rvr),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", stack),
					),
				)

				if notifier != nil {
					body := fmt.Sprintf("Panic on %s %s: %s<br/><br/><pre>%s</pre>",
						html.EscapeString(r.Method),
						html.EscapeString(r.URL.Path),
						html.EscapeString(fmt.Sprint(rvr)),
						html.EscapeString(stack),
					)
					if err := notifier.Notify(context.WithoutCancel(r.Context()), "Global exception", body); err != nil {
						logger.Error("failed to send panic alert", slog.String("op", op), slog.Any("err", err))
					}
				}

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
