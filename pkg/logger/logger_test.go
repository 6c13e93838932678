package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/resilience/pkg/logger"
)

var _ = Describe("Logger", func() {
	var buf *bytes.Buffer
	ctx := context.Background()

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	Describe("New", func() {
		DescribeTable("level parsing",
			func(level string, enabled, disabled slog.Level) {
				log := logger.New(logger.Options{Level: level, Environment: "dev", Output: buf})
				Expect(log.Enabled(ctx, enabled)).To(BeTrue())
				Expect(log.Enabled(ctx, disabled)).To(BeFalse())
			},
			Entry("info", "info", slog.LevelInfo, slog.LevelDebug),
			Entry("warn", "warn", slog.LevelWarn, slog.LevelInfo),
			Entry("error", "error", slog.LevelError, slog.LevelWarn),
			Entry("upper case", "WARN", slog.LevelWarn, slog.LevelInfo),
			Entry("invalid falls back to info", "invalid", slog.LevelInfo, slog.LevelDebug),
		)

		It("should respect debug level", func() {
			log := logger.New(logger.Options{Level: "debug", Environment: "dev", Output: buf})
			Expect(log.Enabled(ctx, slog.LevelDebug)).To(BeTrue())
		})

		It("should write JSON in prod", func() {
			log := logger.New(logger.Options{Level: "info", Environment: "prod", Output: buf})
			log.Info("Breaker is open", slog.String("breaker", "payments"))

			var record map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &record)).To(Succeed())
			Expect(record).To(HaveKeyWithValue("msg", "Breaker is open"))
			Expect(record).To(HaveKeyWithValue("breaker", "payments"))
			Expect(record).To(HaveKeyWithValue("environment", "prod"))
		})

		It("should write console output elsewhere", func() {
			log := logger.New(logger.Options{Level: "info", Environment: "dev", Output: buf, NoColor: true})
			log.Info("Collector started", slog.Int("buffer", 10))

			Expect(buf.String()).To(ContainSubstring("Collector started"))
			Expect(buf.String()).To(ContainSubstring("buffer=10"))
			Expect(buf.String()).To(ContainSubstring("environment=dev"))
		})

		It("should support the addSource option", func() {
			log := logger.New(logger.Options{Level: "info", Environment: "prod", Output: buf, AddSource: true})
			log.Info("hello")
			Expect(buf.String()).To(ContainSubstring(`"source"`))
		})
	})

	Describe("Discard", func() {
		It("should drop every record", func() {
			log := logger.Discard()
			Expect(log.Enabled(ctx, slog.LevelError)).To(BeFalse())
		})
	})
})
