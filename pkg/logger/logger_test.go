package logger

import (
	"context"
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestLogger(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Logger Suite")
}

var _ = Describe("Logger", func() {
	It("should map configured levels", func() {
		Expect(parseLevel("debug")).To(Equal(slog.LevelDebug))
		Expect(parseLevel("WARN")).To(Equal(slog.LevelWarn))
		Expect(parseLevel("error")).To(Equal(slog.LevelError))
		Expect(parseLevel("")).To(Equal(slog.LevelInfo))
	})

	It("should install the logger returned by Setup as default", func() {
		lg := Setup("error", "json")
		Expect(LoggerWrapper()).To(BeIdenticalTo(lg))
		Expect(lg.Enabled(context.Background(), slog.LevelWarn)).To(BeFalse())
	})

	It("should carry loggers through the context", func() {
		ctx := With(context.Background(), "request_id", "abc")
		Expect(From(ctx)).NotTo(BeIdenticalTo(LoggerWrapper()))
		Expect(From(context.Background())).To(BeIdenticalTo(LoggerWrapper()))
	})

	It("should prefer the context logger over an explicit fallback", func() {
		fallback := slog.New(slog.NewTextHandler(io.Discard, nil))
		Expect(FromOr(context.Background(), fallback)).To(BeIdenticalTo(fallback))

		ctx := With(context.Background(), "traceID", "t-1")
		Expect(FromOr(ctx, fallback)).To(BeIdenticalTo(From(ctx)))
	})
})
