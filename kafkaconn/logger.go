package kafkaconn

import (
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// kgoLogger bridges the broker client's internal logging into zap.
type kgoLogger struct {
	l *zap.Logger
}

func newLogger(l *zap.Logger) *kgoLogger {
	return &kgoLogger{
		l,
	}
}

func (l *kgoLogger) Level() kgo.LogLevel {
	switch l.l.Level() {
	case zap.DebugLevel:
		return kgo.LogLevelDebug
	case zap.InfoLevel:
		return kgo.LogLevelInfo
	case zap.WarnLevel:
		return kgo.LogLevelWarn
	case zap.ErrorLevel, zap.PanicLevel, zap.DPanicLevel, zap.FatalLevel:
		return kgo.LogLevelError
	case zapcore.InvalidLevel:
		return kgo.LogLevelNone
	default:
		return kgo.LogLevelDebug
	}
}

func (l *kgoLogger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	zf := toKeyValuePair(keyvals)

	switch level {
	case kgo.LogLevelDebug, kgo.LogLevelNone:
		l.l.Debug(msg, zf...)
	case kgo.LogLevelInfo:
		l.l.Info(msg, zf...)
	case kgo.LogLevelWarn:
		l.l.Warn(msg, zf...)
	case kgo.LogLevelError:
		l.l.Error(msg, zf...)
	default:
		l.l.Debug(msg, zf...)
	}
}

// toKeyValuePair folds the client's loosely typed key-value pairs into zap
// fields. Keys are stringified, a trailing key without a value is kept with
// a <missing> marker.
func toKeyValuePair(keyvals []any) []zapcore.Field {
	inLen := len(keyvals)
	if inLen == 0 {
		return nil
	}

	if inLen%2 != 0 {
		keyvals = append(keyvals, "<missing>")
		inLen++
	}

	out := make([]zapcore.Field, 0, inLen/2)
	for i := 0; i < inLen; i += 2 {
		key := stringify(keyvals[i])

		switch v := keyvals[i+1].(type) {
		case string:
			out = append(out, zap.String(key, v))
		case bool:
			out = append(out, zap.Bool(key, v))
		case int:
			out = append(out, zap.Int(key, v))
		case int32:
			out = append(out, zap.Int32(key, v))
		case int64:
			out = append(out, zap.Int64(key, v))
		case error:
			out = append(out, zap.NamedError(key, v))
		case fmt.Stringer:
			out = append(out, zap.Stringer(key, v))
		default:
			out = append(out, zap.Any(key, v))
		}
	}

	return out
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
